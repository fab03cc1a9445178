package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// product from another vendor than the one the cart is pinned to
	ErrVendorConflict = errors.New("vendor conflict")
	// line id not present in the cart
	ErrLineNotFound = errors.New("cart line not found")
	// negative, or more than MaxLineQuantity
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// MaxLineQuantity caps a single line. Keeps quantity and totals far away from int64 overflow.
const MaxLineQuantity int64 = 1000

// One cart per shopper. Lines are stored in cart_lines.
type Cart struct {
	ID         string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     int64           `gorm:"not null;uniqueIndex" json:"user_id"`
	VendorID   int64           `gorm:"not null;default:0" json:"vendor_id"`
	GrandTotal decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"grand_total"`
	Version    int64           `gorm:"not null;default:0" json:"version"`
	Lines      []CartLine      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

// NewCart returns an empty cart for the shopper.
func NewCart(id string, userID int64, now time.Time) Cart {
	return Cart{
		ID:         id,
		UserID:     userID,
		GrandTotal: decimal.Zero,
		Lines:      []CartLine{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// AddProduct adds qty of the product to the cart, or increments the existing line.
// A non-empty cart only accepts products of its vendor.
func (c *Cart) AddProduct(lineID string, p Product, qty int64) error {
	if qty < 1 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if !c.IsEmpty() && c.VendorID != p.VendorID {
		return ErrVendorConflict
	}

	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			if c.Lines[i].Quantity > MaxLineQuantity-qty {
				return ErrInvalidQuantity
			}
			c.Lines[i].Quantity += qty
			c.Recalculate()
			return nil
		}
	}

	c.Lines = append(c.Lines, CartLine{
		ID:        lineID,
		CartID:    c.ID,
		ProductID: p.ID,
		VendorID:  p.VendorID,
		Title:     p.Title,
		Image:     p.Image,
		UnitPrice: p.Price,
		Quantity:  qty,
	})
	c.Recalculate()
	return nil
}

// SetQuantity sets the quantity of a line. Zero removes the line.
func (c *Cart) SetQuantity(lineID string, qty int64) error {
	if qty < 0 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		return c.RemoveLine(lineID)
	}

	i := c.lineIndex(lineID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.Lines[i].Quantity = qty
	c.Recalculate()
	return nil
}

func (c *Cart) RemoveLine(lineID string) error {
	i := c.lineIndex(lineID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.Recalculate()
	return nil
}

// Clear drops every line. The cart itself is kept.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.Recalculate()
}

// Recalculate rebuilds every line total and the grand total from scratch.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Lines {
		c.Lines[i].LineTotal = c.Lines[i].UnitPrice.Mul(decimal.NewFromInt(c.Lines[i].Quantity))
		total = total.Add(c.Lines[i].LineTotal)
	}
	c.GrandTotal = total

	if len(c.Lines) == 0 {
		c.VendorID = 0
	} else {
		c.VendorID = c.Lines[0].VendorID
	}
}

// Snapshot returns a deep copy of the lines.
func (c *Cart) Snapshot() []CartLine {
	out := make([]CartLine, len(c.Lines))
	copy(out, c.Lines)
	return out
}

// Clone copies the cart so a failed mutation never touches the caller's value.
func (c Cart) Clone() Cart {
	c.Lines = c.Snapshot()
	return c
}

func (c *Cart) lineIndex(lineID string) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}
