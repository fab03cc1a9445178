package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Immutable record of a paid checkout. Lines, contact and address are copies, never references.
type Order struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	IntentID  string          `gorm:"type:varchar(255);not null;index" json:"intent_id"`
	PaymentID string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"payment_id"`
	VendorID  int64           `gorm:"not null;index" json:"vendor_id"`
	UserID    int64           `gorm:"not null;index" json:"user_id"`
	Total     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`

	Name   string `gorm:"type:varchar(255)" json:"name"`
	Email  string `gorm:"type:varchar(255)" json:"email"`
	Mobile string `gorm:"type:varchar(30)" json:"mobile"`

	Street   string `gorm:"type:varchar(255);not null" json:"street"`
	City     string `gorm:"type:varchar(255);not null" json:"city"`
	State    string `gorm:"type:varchar(100);not null" json:"state"`
	Landmark string `gorm:"type:varchar(255)" json:"landmark"`
	Pincode  string `gorm:"type:varchar(20);not null" json:"pincode"`

	Items     []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time   `gorm:"not null;index" json:"created_at"`
}

type OrderLine struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID   string          `gorm:"type:varchar(36);not null;index" json:"-"`
	ProductID int64           `gorm:"not null" json:"product_id"`
	VendorID  int64           `gorm:"not null" json:"vendor_id"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Image     string          `gorm:"type:text" json:"image"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
}

// ContactSnapshot copies the shopper fields onto the order.
func (o *Order) ContactSnapshot(u User) {
	o.Name = u.Name
	o.Email = u.Email
	o.Mobile = u.Mobile
}

// AddressSnapshot copies the postal fields onto the order.
func (o *Order) AddressSnapshot(a Address) {
	o.Street = a.Street
	o.City = a.City
	o.State = a.State
	o.Landmark = a.Landmark
	o.Pincode = a.Pincode
}

// OrderLinesFromCart freezes cart lines and returns them with their recomputed sum.
func OrderLinesFromCart(lines []CartLine) ([]OrderLine, decimal.Decimal) {
	out := make([]OrderLine, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
		out = append(out, OrderLine{
			ProductID: l.ProductID,
			VendorID:  l.VendorID,
			Title:     l.Title,
			Image:     l.Image,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return out, total
}
