package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"foodorder/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// List returns orders newest first, optionally restricted to one owner.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items").Order("created_at desc")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// GetByID returns a single order with its lines.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "order with ID %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get order by ID %s", id)
	}
	return &order, nil
}

// Create inserts the order together with its lines.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return errors.Wrap(err, "failed to create order")
	}
	return nil
}

// UpdateState persists the lifecycle fields of an order. Orders already
// Delivered or Cancelled in storage are left untouched and ErrConflict is
// returned.
func (r *GORMOrderRepository) UpdateState(ctx context.Context, order *models.Order) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", order.ID, []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusCancelled}).
		Updates(map[string]interface{}{
			"status":        order.Status,
			"cancelled_by":  order.CancelledBy,
			"cancelled_at":  order.CancelledAt,
			"cancel_reason": order.CancelReason,
			"updated_at":    order.UpdatedAt,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update order %s", order.ID)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
		return errors.Wrapf(err, "failed to update order %s", order.ID)
	}
	if count == 0 {
		return errors.Wrapf(ErrNotFound, "order with ID %s for status update", order.ID)
	}
	return errors.Wrapf(ErrConflict, "order %s is already closed", order.ID)
}
