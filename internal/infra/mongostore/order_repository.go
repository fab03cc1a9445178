package mongostore

import (
	"context"
	"errors"
	"fmt"

	"foodcart/internal/domain/model"
	repo "foodcart/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderMongoRepository struct {
	collection *mongo.Collection
}

func NewOrderMongoRepository(db *mongo.Database) *OrderMongoRepository {
	return &OrderMongoRepository{collection: db.Collection(ordersCollection)}
}

var _ repo.OrderRepository = (*OrderMongoRepository)(nil)

func (m *OrderMongoRepository) Create(ctx context.Context, order *model.Order) error {
	_, err := m.collection.InsertOne(ctx, newOrderDocument(*order))
	if mongo.IsDuplicateKeyError(err) {
		return repo.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	for i := range order.Items {
		order.Items[i].ID = int64(i + 1)
		order.Items[i].OrderID = order.ID
	}
	return nil
}

func (m *OrderMongoRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	return m.findOne(ctx, bson.M{"_id": orderID})
}

func (m *OrderMongoRepository) FindByPaymentID(ctx context.Context, paymentID string) (model.Order, error) {
	return m.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (m *OrderMongoRepository) findOne(ctx context.Context, filter bson.M) (model.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toModel(), nil
}

func (m *OrderMongoRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{"user_id": userID}
	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return []model.Order{}, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return []model.Order{}, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return []model.Order{}, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	out := make([]model.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, total, nil
}
