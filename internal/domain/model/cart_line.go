package model

import "github.com/shopspring/decimal"

// One product within a cart.
// Price, title and vendor are copied from the catalog when the line is created.
type CartLine struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	CartID    string          `gorm:"type:varchar(36);not null;index" json:"-"`
	Position  int             `gorm:"not null;default:0" json:"-"`
	ProductID int64           `gorm:"not null" json:"product_id"`
	VendorID  int64           `gorm:"not null" json:"vendor_id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Image     string          `gorm:"type:text" json:"image"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
}
