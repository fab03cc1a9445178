package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// the row/document changed since it was read
	ErrVersionConflict = errors.New("version conflict")
	// unique constraint hit (carts.user_id, orders.payment_id)
	ErrDuplicate = errors.New("duplicate")
	// key absent from a cache
	ErrCacheMiss = errors.New("cache miss")
)
