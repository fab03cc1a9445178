package mongostore

import (
	"context"

	repo "foodcart/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

type txRepos struct {
	carts  *CartMongoRepository
	orders *OrderMongoRepository
}

func (r *txRepos) Carts() repo.CartRepository   { return r.carts }
func (r *txRepos) Orders() repo.OrderRepository { return r.orders }

// TxManagerMongo runs fn in a multi-document transaction. Needs a replica set.
type TxManagerMongo struct {
	db    *mongo.Database
	repos *txRepos
}

func NewTxManagerMongo(db *mongo.Database) *TxManagerMongo {
	return &TxManagerMongo{
		db: db,
		repos: &txRepos{
			carts:  NewCartMongoRepository(db),
			orders: NewOrderMongoRepository(db),
		},
	}
}

func (tm *TxManagerMongo) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	session, err := tm.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	// the session context carries the transaction into every collection call
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, tm.repos)
	})
	return err
}
