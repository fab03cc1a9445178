package repository

import (
	"context"

	"foodcart/internal/domain/model"
)

type UserRepository interface {
	// ErrNotFound when the user does not exist
	FindByID(ctx context.Context, userID int64) (*model.User, error)
}
