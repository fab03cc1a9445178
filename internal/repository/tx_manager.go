package repository

import "context"

// Repositories bound to one transaction.
type TxRepos interface {
	Carts() CartRepository
	Orders() OrderRepository
}

// Hides begin/commit/rollback from the usecases. fn must use the ctx it is given.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
}
