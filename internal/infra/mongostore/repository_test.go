package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodcart/internal/domain/model"
	repo "foodcart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo container test in -short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	require.NoError(t, CreateIndexes(ctx, db))
	return db
}

func newCart(userID int64) model.Cart {
	c := model.NewCart(uuid.NewString(), userID, time.Now().UTC().Truncate(time.Millisecond))
	_ = c.AddProduct(uuid.NewString(), model.Product{ID: 1, VendorID: 4, Title: "Idli", Price: decimal.RequireFromString("45.50")}, 2)
	return c
}

func TestCartMongoRepository(t *testing.T) {
	db := setupTestDB(t)
	carts := NewCartMongoRepository(db)
	ctx := context.Background()

	cart := newCart(10)
	require.NoError(t, carts.Create(ctx, cart))

	t.Run("duplicate shopper", func(t *testing.T) {
		err := carts.Create(ctx, newCart(10))
		assert.ErrorIs(t, err, repo.ErrDuplicate)
	})

	t.Run("round trip keeps money exact", func(t *testing.T) {
		got, err := carts.FindByUserID(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, cart.ID, got.ID)
		require.Len(t, got.Lines, 1)
		assert.True(t, decimal.RequireFromString("91").Equal(got.GrandTotal))
		assert.True(t, decimal.RequireFromString("45.50").Equal(got.Lines[0].UnitPrice))
	})

	t.Run("save bumps version and rejects stale writers", func(t *testing.T) {
		got, err := carts.FindByID(ctx, cart.ID)
		require.NoError(t, err)

		require.NoError(t, got.SetQuantity(got.Lines[0].ID, 3))
		saved, err := carts.Save(ctx, got, got.Version)
		require.NoError(t, err)
		assert.Equal(t, got.Version+1, saved.Version)

		_, err = carts.Save(ctx, got, got.Version)
		assert.ErrorIs(t, err, repo.ErrVersionConflict)
	})

	t.Run("missing cart", func(t *testing.T) {
		_, err := carts.FindByUserID(ctx, 999)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		_, err = carts.Save(ctx, newCart(999), 0)
		assert.ErrorIs(t, err, repo.ErrNotFound)
	})
}

func TestOrderMongoRepository(t *testing.T) {
	db := setupTestDB(t)
	orders := NewOrderMongoRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		o := &model.Order{
			ID:        uuid.NewString(),
			IntentID:  "order_x",
			PaymentID: uuid.NewString(),
			UserID:    5,
			VendorID:  4,
			Total:     decimal.RequireFromString("10.10"),
			Items:     []model.OrderLine{{ProductID: 1, Title: "Vada", UnitPrice: decimal.RequireFromString("10.10"), Quantity: 1, LineTotal: decimal.RequireFromString("10.10")}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, orders.Create(ctx, o))
	}

	list, total, err := orders.ListByUserID(ctx, 5, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	dup := &model.Order{ID: uuid.NewString(), PaymentID: list[0].PaymentID, UserID: 5, Total: decimal.Zero, CreatedAt: base}
	assert.ErrorIs(t, orders.Create(ctx, dup), repo.ErrDuplicate)

	got, err := orders.FindByPaymentID(ctx, list[0].PaymentID)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, got.ID)
	assert.True(t, decimal.RequireFromString("10.10").Equal(got.Total))
}

func TestTxManagerMongo_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTxManagerMongo(db)
	ctx := context.Background()
	boom := errors.New("boom")

	cart := newCart(20)
	err := tm.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		if err := r.Carts().Create(ctx, cart); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewCartMongoRepository(db).FindByUserID(ctx, 20)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
