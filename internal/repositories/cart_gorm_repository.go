package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"foodorder/internal/models"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// GetByUserID loads the cart owned by userID with lines in insertion order.
func (r *GORMCartRepository) GetByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at asc") }).
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "cart for user %s", userID)
		}
		return nil, errors.Wrapf(err, "failed to get cart for user %s", userID)
	}
	return &cart, nil
}

// Create inserts an empty or pre-filled cart.
func (r *GORMCartRepository) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	for i := range cart.Items {
		r.prepareItem(cart, &cart.Items[i])
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(ErrDuplicate, "cart for user %s", cart.UserID)
		}
		return errors.Wrap(err, "failed to create cart")
	}
	return nil
}

// Save rewrites the cart lines inside a single transaction.
func (r *GORMCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	for i := range cart.Items {
		r.prepareItem(cart, &cart.Items[i])
	}
	cart.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Cart{}).Where("id = ?", cart.ID).Update("updated_at", cart.UpdatedAt)
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to touch cart")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrNotFound, "cart with ID %s", cart.ID)
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear cart lines")
		}
		if len(cart.Items) == 0 {
			return nil
		}
		if err := tx.Create(&cart.Items).Error; err != nil {
			return errors.Wrap(err, "failed to write cart lines")
		}
		return nil
	})
}

func (r *GORMCartRepository) prepareItem(cart *models.Cart, item *models.CartItem) {
	item.CartID = cart.ID
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
}
