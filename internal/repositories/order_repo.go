package repositories

import (
	"context"

	"foodorder/internal/models"
)

// OrderFilter narrows an order listing. An empty UserID lists every order.
type OrderFilter struct {
	UserID string
}

// OrderRepository defines the interface for order data access.
// Orders are never deleted.
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// UpdateState writes status and cancellation metadata. It returns
	// ErrConflict when the stored order is already Delivered or Cancelled.
	UpdateState(ctx context.Context, order *models.Order) error
}
