package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every legal status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Who cancelled an order.
const (
	CancelledByCustomer = "Customer"
	CancelledByAdmin    = "Admin"
)

// OrderItem represents a single line within an order.
// Name and Price are copied from the catalog at checkout and never re-derived.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36)"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`
}

// ShippingAddress is free-text delivery information.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a ShippingAddress) Trimmed() ShippingAddress {
	return ShippingAddress{
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

// Complete reports whether every address field holds more than whitespace.
func (a ShippingAddress) Complete() bool {
	t := a.Trimmed()
	return t.Address != "" && t.City != "" && t.PostalCode != ""
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"index;type:varchar(36)"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress ShippingAddress `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(32)"`
	ItemsPrice      decimal.Decimal `json:"items_price" gorm:"type:numeric(12,2)"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);index"`
	CancelledBy     string          `json:"cancelled_by,omitempty" gorm:"type:varchar(20)"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
