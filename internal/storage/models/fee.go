// internal/storage/models/fee.go
package models

import (
	"strings"
	"time"
)

type FeePurpose string

const (
	FeeComment FeePurpose = "comment"
	FeeVote    FeePurpose = "vote"
)

// SpentFee marks a fee transaction as consumed. One transaction pays for
// exactly one comment or vote.
type SpentFee struct {
	TxHash    string     `gorm:"primaryKey;type:varchar(66)" json:"tx_hash"`
	Payer     string     `gorm:"index;not null;type:varchar(42)" json:"payer"`
	Purpose   FeePurpose `gorm:"not null;type:varchar(16)" json:"purpose"`
	CreatedAt time.Time  `json:"created_at"`
}

// NormalizeHash lower-cases and trims a transaction hash.
func NormalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
