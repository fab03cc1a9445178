package repository

import (
	"context"

	"foodcart/internal/domain/model"
)

// Carts are read and written as whole documents (cart + lines).
type CartRepository interface {
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByID(ctx context.Context, cartID string) (model.Cart, error)

	// ErrDuplicate when the shopper already has a cart
	Create(ctx context.Context, cart model.Cart) error

	// Save replaces lines and totals only if the stored version still equals expectedVersion.
	// The returned cart carries the new version.
	Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error)
}

// Read cache in front of CartRepository.FindByUserID.
type CartCache interface {
	Get(ctx context.Context, userID int64) (model.Cart, error)
	Set(ctx context.Context, cart model.Cart) error
	Delete(ctx context.Context, userID int64) error
}
