package repository

import (
	"context"

	"foodcart/internal/domain/model"
)

type OrderRepository interface {
	// Create stores the order and its lines. ErrDuplicate when payment_id already exists.
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
}
