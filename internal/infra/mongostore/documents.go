package mongostore

import (
	"time"

	"foodcart/internal/domain/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartDocument struct {
	ID         string               `bson:"_id"`
	UserID     int64                `bson:"user_id"`
	VendorID   int64                `bson:"vendor_id"`
	GrandTotal primitive.Decimal128 `bson:"grand_total"`
	Version    int64                `bson:"version"`
	Lines      []cartLineDocument   `bson:"lines"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

type cartLineDocument struct {
	ID        string               `bson:"id"`
	ProductID int64                `bson:"product_id"`
	VendorID  int64                `bson:"vendor_id"`
	Title     string               `bson:"title"`
	Image     string               `bson:"image,omitempty"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Quantity  int64                `bson:"quantity"`
	LineTotal primitive.Decimal128 `bson:"line_total"`
}

type orderDocument struct {
	ID        string               `bson:"_id"`
	IntentID  string               `bson:"intent_id"`
	PaymentID string               `bson:"payment_id"`
	VendorID  int64                `bson:"vendor_id"`
	UserID    int64                `bson:"user_id"`
	Total     primitive.Decimal128 `bson:"total"`
	Name      string               `bson:"name"`
	Email     string               `bson:"email"`
	Mobile    string               `bson:"mobile"`
	Street    string               `bson:"street"`
	City      string               `bson:"city"`
	State     string               `bson:"state"`
	Landmark  string               `bson:"landmark,omitempty"`
	Pincode   string               `bson:"pincode"`
	Items     []orderLineDocument  `bson:"items"`
	CreatedAt time.Time            `bson:"created_at"`
}

type orderLineDocument struct {
	ProductID int64                `bson:"product_id"`
	VendorID  int64                `bson:"vendor_id"`
	Title     string               `bson:"title"`
	Image     string               `bson:"image,omitempty"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Quantity  int64                `bson:"quantity"`
	LineTotal primitive.Decimal128 `bson:"line_total"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// unreachable for money values
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func newCartDocument(c model.Cart) cartDocument {
	lines := make([]cartLineDocument, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, cartLineDocument{
			ID:        l.ID,
			ProductID: l.ProductID,
			VendorID:  l.VendorID,
			Title:     l.Title,
			Image:     l.Image,
			UnitPrice: toDecimal128(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: toDecimal128(l.LineTotal),
		})
	}
	return cartDocument{
		ID:         c.ID,
		UserID:     c.UserID,
		VendorID:   c.VendorID,
		GrandTotal: toDecimal128(c.GrandTotal),
		Version:    c.Version,
		Lines:      lines,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func (d cartDocument) toModel() model.Cart {
	lines := make([]model.CartLine, 0, len(d.Lines))
	for i, l := range d.Lines {
		lines = append(lines, model.CartLine{
			ID:        l.ID,
			CartID:    d.ID,
			Position:  i,
			ProductID: l.ProductID,
			VendorID:  l.VendorID,
			Title:     l.Title,
			Image:     l.Image,
			UnitPrice: fromDecimal128(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: fromDecimal128(l.LineTotal),
		})
	}
	return model.Cart{
		ID:         d.ID,
		UserID:     d.UserID,
		VendorID:   d.VendorID,
		GrandTotal: fromDecimal128(d.GrandTotal),
		Version:    d.Version,
		Lines:      lines,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func newOrderDocument(o model.Order) orderDocument {
	items := make([]orderLineDocument, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderLineDocument{
			ProductID: it.ProductID,
			VendorID:  it.VendorID,
			Title:     it.Title,
			Image:     it.Image,
			UnitPrice: toDecimal128(it.UnitPrice),
			Quantity:  it.Quantity,
			LineTotal: toDecimal128(it.LineTotal),
		})
	}
	return orderDocument{
		ID:        o.ID,
		IntentID:  o.IntentID,
		PaymentID: o.PaymentID,
		VendorID:  o.VendorID,
		UserID:    o.UserID,
		Total:     toDecimal128(o.Total),
		Name:      o.Name,
		Email:     o.Email,
		Mobile:    o.Mobile,
		Street:    o.Street,
		City:      o.City,
		State:     o.State,
		Landmark:  o.Landmark,
		Pincode:   o.Pincode,
		Items:     items,
		CreatedAt: o.CreatedAt.UTC(),
	}
}

func (d orderDocument) toModel() model.Order {
	items := make([]model.OrderLine, 0, len(d.Items))
	for i, it := range d.Items {
		items = append(items, model.OrderLine{
			ID:        int64(i + 1),
			OrderID:   d.ID,
			ProductID: it.ProductID,
			VendorID:  it.VendorID,
			Title:     it.Title,
			Image:     it.Image,
			UnitPrice: fromDecimal128(it.UnitPrice),
			Quantity:  it.Quantity,
			LineTotal: fromDecimal128(it.LineTotal),
		})
	}
	return model.Order{
		ID:        d.ID,
		IntentID:  d.IntentID,
		PaymentID: d.PaymentID,
		VendorID:  d.VendorID,
		UserID:    d.UserID,
		Total:     fromDecimal128(d.Total),
		Name:      d.Name,
		Email:     d.Email,
		Mobile:    d.Mobile,
		Street:    d.Street,
		City:      d.City,
		State:     d.State,
		Landmark:  d.Landmark,
		Pincode:   d.Pincode,
		Items:     items,
		CreatedAt: d.CreatedAt,
	}
}
