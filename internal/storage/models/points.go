// internal/storage/models/points.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserPoints is the reward ledger row of one wallet.
type UserPoints struct {
	BaseModel
	WalletAddress   string          `gorm:"uniqueIndex;not null;type:varchar(42)" json:"wallet_address"`
	TotalBuyVolume  decimal.Decimal `gorm:"type:numeric(38,18);default:0" json:"total_buy_volume"`
	TotalSellVolume decimal.Decimal `gorm:"type:numeric(38,18);default:0" json:"total_sell_volume"`
	TotalVolume     decimal.Decimal `gorm:"index;type:numeric(38,18);default:0" json:"total_volume"`
	TradingPoints   float64         `gorm:"type:double precision;default:0" json:"trading_points"`
	CommentPoints   float64         `gorm:"type:double precision;default:0" json:"comment_points"`
	Points          float64         `gorm:"index;type:double precision;default:0" json:"points"`
	LastUpdated     time.Time       `gorm:"not null" json:"last_updated"`
}

// UserProfile carries the optional display name of a wallet.
type UserProfile struct {
	BaseModel
	WalletAddress string `gorm:"uniqueIndex;not null;type:varchar(42)"`
	DisplayName   string `gorm:"type:varchar(64)"`
}
