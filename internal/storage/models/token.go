// internal/storage/models/token.go
package models

import "strings"

// Token is a launchpad token as listed in the catalogue. Market fields are a
// cached view of the contract and are refreshed by quotes.
type Token struct {
	BaseModel
	Name            string  `gorm:"not null;type:varchar(64)" json:"name" yaml:"name"`
	Symbol          string  `gorm:"not null;type:varchar(16)" json:"symbol" yaml:"symbol"`
	Image           string  `gorm:"type:text" json:"image" yaml:"image"`
	CurrentPrice    float64 `gorm:"type:double precision" json:"current_price" yaml:"-"`
	StartPrice      float64 `gorm:"type:double precision" json:"start_price" yaml:"-"`
	MarketCap       float64 `gorm:"type:double precision" json:"market_cap" yaml:"-"`
	MaxSupply       uint64  `gorm:"not null" json:"max_supply" yaml:"max_supply"`
	CurrentSupply   uint64  `gorm:"not null;default:0" json:"current_supply" yaml:"current_supply"`
	Holders         int     `gorm:"default:0" json:"holders" yaml:"-"`
	Creator         string  `gorm:"index;not null;type:varchar(42)" json:"creator" yaml:"creator"`
	IntuitionLink   *string `gorm:"uniqueIndex;type:text" json:"intuition_link,omitempty" yaml:"intuition_link"`
	IsAlpha         bool    `gorm:"default:false" json:"is_alpha" yaml:"is_alpha"`
	ContractAddress string  `gorm:"uniqueIndex;not null;type:varchar(42)" json:"contract_address" yaml:"contract_address"`
}

// StarredToken marks a token as a favourite of a user.
type StarredToken struct {
	BaseModel
	UserAddress  string `gorm:"uniqueIndex:idx_star_user_token,priority:1;not null;type:varchar(42)"`
	TokenAddress string `gorm:"uniqueIndex:idx_star_user_token,priority:2;not null;type:varchar(42)"`
}

// Comment is a paid message on a token page.
type Comment struct {
	BaseModel
	TokenAddress string `gorm:"index;not null;type:varchar(42)" json:"token_address"`
	Author       string `gorm:"index;not null;type:varchar(42)" json:"author"`
	Body         string `gorm:"not null;type:text" json:"body"`
	TxHash       string `gorm:"uniqueIndex;type:varchar(66)" json:"tx_hash"`
}

// NormalizeAddress lower-cases and trims a hex address so lookups match
// regardless of checksum casing.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
