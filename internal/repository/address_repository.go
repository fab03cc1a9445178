package repository

import (
	"context"

	"foodcart/internal/domain/model"
)

// Address book and address resolver.
type AddressRepository interface {
	Create(ctx context.Context, address model.Address) (model.Address, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)

	// ErrNotFound when missing
	FindByID(ctx context.Context, addressID int64) (model.Address, error)

	Update(ctx context.Context, address model.Address) error
	Delete(ctx context.Context, addressID int64) error
	IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error)

	// only one default per user
	SetDefault(ctx context.Context, userID, addressID int64) error
}
