package mongostore

import (
	"context"
	"errors"
	"fmt"

	"foodcart/internal/domain/model"
	repo "foodcart/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CartMongoRepository stores a cart and its lines as one document.
type CartMongoRepository struct {
	collection *mongo.Collection
}

func NewCartMongoRepository(db *mongo.Database) *CartMongoRepository {
	return &CartMongoRepository{collection: db.Collection(cartsCollection)}
}

var _ repo.CartRepository = (*CartMongoRepository)(nil)

func (m *CartMongoRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	return m.findOne(ctx, bson.M{"user_id": userID})
}

func (m *CartMongoRepository) FindByID(ctx context.Context, cartID string) (model.Cart, error) {
	return m.findOne(ctx, bson.M{"_id": cartID})
}

func (m *CartMongoRepository) findOne(ctx context.Context, filter bson.M) (model.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.toModel(), nil
}

func (m *CartMongoRepository) Create(ctx context.Context, cart model.Cart) error {
	_, err := m.collection.InsertOne(ctx, newCartDocument(cart))
	if mongo.IsDuplicateKeyError(err) {
		return repo.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

// Save replaces the document only while its version is still expectedVersion.
func (m *CartMongoRepository) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	cart.Version = expectedVersion + 1
	doc := newCartDocument(cart)

	res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": cart.ID, "version": expectedVersion}, doc)
	if err != nil {
		return model.Cart{}, fmt.Errorf("failed to save cart: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := m.collection.CountDocuments(ctx, bson.M{"_id": cart.ID})
		if err != nil {
			return model.Cart{}, fmt.Errorf("failed to check cart: %w", err)
		}
		if n == 0 {
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, repo.ErrVersionConflict
	}
	return doc.toModel(), nil
}
