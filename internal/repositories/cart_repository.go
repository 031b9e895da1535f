package repositories

import (
	"context"

	"foodorder/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	// Save replaces the stored lines of the cart with cart.Items.
	Save(ctx context.Context, cart *models.Cart) error
}
