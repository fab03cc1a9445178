package repository

import (
	"context"

	repo "foodcart/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	carts  repo.CartRepository
	orders repo.OrderRepository
}

func (r *txReposGorm) Carts() repo.CartRepository   { return r.carts }
func (r *txReposGorm) Orders() repo.OrderRepository { return r.orders }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// repos rebuilt on the tx handle
		r := &txReposGorm{
			carts:  NewCartGormRepository(tx),
			orders: NewOrderGormRepository(tx),
		}
		return fn(ctx, r)
	})
}
