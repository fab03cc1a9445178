package repository

import (
	"context"
	"errors"
	"time"

	"foodcart/internal/domain/model"
	repo "foodcart/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

// Cart with its lines in display order.
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("user_id = ?", userID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return normalize(cart), nil
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID string) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("id = ?", cartID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return normalize(cart), nil
}

// Create inserts the cart and its lines. carts.user_id is unique.
func (r *CartGormRepository) Create(ctx context.Context, cart model.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repo.ErrDuplicate
			}
			return err
		}
		return insertLines(tx, cart.ID, cart.Lines)
	})
}

// Save is a compare-and-swap on carts.version.
func (r *CartGormRepository) Save(ctx context.Context, cart model.Cart, expectedVersion int64) (model.Cart, error) {
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Cart{}).
			Where("id = ? AND version = ?", cart.ID, expectedVersion).
			Updates(map[string]interface{}{
				"vendor_id":   cart.VendorID,
				"grand_total": cart.GrandTotal,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Cart{}).Where("id = ?", cart.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return repo.ErrNotFound
			}
			return repo.ErrVersionConflict
		}

		// lines are replaced wholesale
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartLine{}).Error; err != nil {
			return err
		}
		return insertLines(tx, cart.ID, cart.Lines)
	})
	if err != nil {
		return model.Cart{}, err
	}

	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	for i := range cart.Lines {
		cart.Lines[i].CartID = cart.ID
		cart.Lines[i].Position = i
	}
	return normalize(cart), nil
}

func insertLines(tx *gorm.DB, cartID string, lines []model.CartLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]model.CartLine, len(lines))
	copy(rows, lines)
	for i := range rows {
		rows[i].CartID = cartID
		rows[i].Position = i
	}
	return tx.Create(&rows).Error
}

func normalize(cart model.Cart) model.Cart {
	if cart.Lines == nil {
		cart.Lines = []model.CartLine{}
	}
	return cart
}
