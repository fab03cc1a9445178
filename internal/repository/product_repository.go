package repository

import (
	"context"

	"foodcart/internal/domain/model"
)

// Catalog lookup. Read-only for this service.
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
