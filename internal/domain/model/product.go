package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog entry. The cart service only reads it.
type Product struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	VendorID  int64           `gorm:"not null;index" json:"vendor_id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Image     string          `gorm:"type:text" json:"image"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
