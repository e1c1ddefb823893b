// internal/storage/models/base.go
package models

import "time"

// BaseModel replaces gorm.Model to keep control over the column set.
type BaseModel struct {
	ID        uint       `gorm:"primarykey" json:"-"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}
