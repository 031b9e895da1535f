package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line of a cart. A cart holds at most one line per product.
type CartItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CartID    string          `json:"-" gorm:"uniqueIndex:idx_cart_product;type:varchar(36)"`
	ProductID string          `json:"product_id" gorm:"uniqueIndex:idx_cart_product;type:varchar(36)"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`
	AddedAt   time.Time       `json:"added_at"`
}

// Cart is the persisted working cart of a user. There is at most one per user.
type Cart struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	TotalItems int             `json:"total_items" gorm:"-"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"-"`
}

// ItemByProduct returns the line holding productID, if any.
func (c *Cart) ItemByProduct(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// ItemByID returns the line with the given id, if any.
func (c *Cart) ItemByID(id string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}

// RecalculateTotals refreshes the running totals from the current lines.
func (c *Cart) RecalculateTotals() {
	c.TotalItems = 0
	c.TotalPrice = decimal.Zero
	for _, item := range c.Items {
		c.TotalItems += item.Quantity
		c.TotalPrice = c.TotalPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
}
