package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"foodorder/internal/mailer"
	"foodorder/internal/models"
	"foodorder/internal/notify"
	"foodorder/internal/repositories"
)

// DefaultCancelWindow is how long after checkout a customer may cancel.
const DefaultCancelWindow = 60 * time.Second

const defaultAdminCancelReason = "Cancelled by admin"

// OrderLineInput is one requested line of a new order.
type OrderLineInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput is the checkout request of a customer.
type CreateOrderInput struct {
	Items           []OrderLineInput       `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

// OrderEvent is the payload of realtime and broker order events.
type OrderEvent struct {
	OrderID      string             `json:"order_id"`
	UserID       string             `json:"user_id"`
	Status       models.OrderStatus `json:"status"`
	ItemsPrice   decimal.Decimal    `json:"items_price"`
	CancelledBy  string             `json:"cancelled_by,omitempty"`
	CancelReason string             `json:"cancel_reason,omitempty"`
}

func newOrderEvent(o *models.Order) OrderEvent {
	return OrderEvent{
		OrderID:      o.ID,
		UserID:       o.UserID,
		Status:       o.Status,
		ItemsPrice:   o.ItemsPrice,
		CancelledBy:  o.CancelledBy,
		CancelReason: o.CancelReason,
	}
}

// OrderConfig tunes the order lifecycle.
type OrderConfig struct {
	OperatorEmail string
	CancelWindow  time.Duration
}

// OrderService owns order creation and the order state machine.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	notifier    Notifier
	mail        mailer.Mailer
	publisher   EventPublisher // nil when no broker is configured

	operatorEmail string
	cancelWindow  time.Duration
	now           func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	notifier Notifier,
	mail mailer.Mailer,
	publisher EventPublisher,
	cfg OrderConfig,
) *OrderService {
	window := cfg.CancelWindow
	if window <= 0 {
		window = DefaultCancelWindow
	}
	return &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		userRepo:      userRepo,
		notifier:      notifier,
		mail:          mail,
		publisher:     publisher,
		operatorEmail: cfg.OperatorEmail,
		cancelWindow:  window,
		now:           time.Now,
	}
}

// SetClock replaces the wall clock used for timestamps and the cancel window.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateOrder validates the checkout request, snapshots product names and
// prices and persists a Pending order.
func (s *OrderService) CreateOrder(ctx context.Context, customerID string, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ValidationError("order must contain at least one item")
	}
	if !in.ShippingAddress.Complete() {
		return nil, ValidationError("shipping address, city and postal code are required")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, ValidationError("payment method is required")
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	total := decimal.Zero
	for _, line := range in.Items {
		if line.Quantity < 1 {
			return nil, ValidationError("quantity for product %s must be at least 1", line.ProductID)
		}
		if line.Quantity > MaxLineQuantity {
			return nil, ValidationError("quantity for product %s cannot exceed %d", line.ProductID, MaxLineQuantity)
		}
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ValidationError("product %s does not exist", line.ProductID)
			}
			return nil, errors.Wrapf(err, "failed to resolve product %s", line.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     product.Price,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := s.now()
	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          customerID,
		Items:           items,
		ShippingAddress: in.ShippingAddress.Trimmed(),
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		ItemsPrice:      total,
		Status:          models.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}
	logrus.WithFields(logrus.Fields{"order_id": order.ID, "user_id": customerID}).Info("order created")

	event := newOrderEvent(order)
	hooks := []hook{
		{"notify_admins", func(context.Context) error {
			return s.notifier.NotifyAdmins(notify.EventOrderCreated, event)
		}},
	}
	if s.operatorEmail != "" {
		hooks = append(hooks, hook{"operator_email", func(ctx context.Context) error {
			return s.mail.Send(ctx, mailer.OrderPlaced(s.operatorEmail, order))
		}})
	}
	hooks = s.withPublish(hooks, RoutingOrderCreated, event)
	runHooks(ctx, order.ID, hooks)

	return order, nil
}

// updateFailed classifies an UpdateState error. A conflict means the order
// was closed by a concurrent request after it was loaded.
func updateFailed(err error, orderID string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return NotFoundError("order %s not found", orderID)
	case errors.Is(err, repositories.ErrConflict):
		return InvalidStateError("order %s is already closed", orderID)
	default:
		return errors.Wrapf(err, "failed to update order %s", orderID)
	}
}

// UpdateStatus moves a non-terminal order to status on behalf of an admin.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !ValidStatus(status) {
		return nil, ValidationError("invalid status %q", status)
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order %s not found", orderID)
	}
	if IsTerminal(order.Status) {
		return nil, InvalidStateError("order is already %s", order.Status)
	}
	if !CanTransition(order.Status, status) {
		return nil, InvalidStateError("cannot move order from %s to %s", order.Status, status)
	}

	now := s.now()
	order.Status = status
	order.UpdatedAt = now
	if status == models.OrderStatusCancelled {
		order.CancelledBy = models.CancelledByAdmin
		order.CancelledAt = &now
	}
	if err := s.orderRepo.UpdateState(ctx, order); err != nil {
		return nil, updateFailed(err, orderID)
	}
	logrus.WithFields(logrus.Fields{"order_id": order.ID, "status": status}).Info("order status updated")

	event := newOrderEvent(order)
	hooks := []hook{
		{"notify_user", func(context.Context) error {
			return s.notifier.NotifyUser(order.UserID, notify.EventOrderUpdated, event)
		}},
		{"notify_admins", func(context.Context) error {
			return s.notifier.NotifyAdmins(notify.EventOrderStatusChanged, event)
		}},
	}
	hooks = s.withPublish(hooks, RoutingOrderStatusChanged, event)
	runHooks(ctx, order.ID, hooks)

	return order, nil
}

// CancelByCustomer cancels an order for its owner within the cancel window.
// The window is measured against the clock at the moment of the check.
func (s *OrderService) CancelByCustomer(ctx context.Context, orderID, customerID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order %s not found", orderID)
	}
	if order.UserID != customerID {
		return nil, AuthorizationError("not allowed to cancel this order")
	}
	if IsTerminal(order.Status) {
		return nil, InvalidStateError("order is already %s", order.Status)
	}
	now := s.now()
	if now.Sub(order.CreatedAt) > s.cancelWindow {
		return nil, WindowExpiredError("orders can only be cancelled within %s of placing them", s.cancelWindow)
	}

	order.Status = models.OrderStatusCancelled
	order.CancelledBy = models.CancelledByCustomer
	order.CancelledAt = &now
	order.UpdatedAt = now
	if err := s.orderRepo.UpdateState(ctx, order); err != nil {
		return nil, updateFailed(err, orderID)
	}
	logrus.WithFields(logrus.Fields{"order_id": order.ID, "user_id": customerID}).Info("order cancelled by customer")

	return order, nil
}

// CancelByAdmin cancels any non-terminal order. An empty reason gets a default text.
func (s *OrderService) CancelByAdmin(ctx context.Context, orderID, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order %s not found", orderID)
	}
	if IsTerminal(order.Status) {
		return nil, InvalidStateError("order is already %s", order.Status)
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultAdminCancelReason
	}

	now := s.now()
	order.Status = models.OrderStatusCancelled
	order.CancelledBy = models.CancelledByAdmin
	order.CancelledAt = &now
	order.CancelReason = reason
	order.UpdatedAt = now
	if err := s.orderRepo.UpdateState(ctx, order); err != nil {
		return nil, updateFailed(err, orderID)
	}
	logrus.WithFields(logrus.Fields{"order_id": order.ID, "reason": reason}).Info("order cancelled by admin")

	event := newOrderEvent(order)
	hooks := []hook{
		{"customer_email", func(ctx context.Context) error {
			user, err := s.userRepo.GetByID(ctx, order.UserID)
			if err != nil {
				return err
			}
			return s.mail.Send(ctx, mailer.OrderCancelled(user.Email, user.Name, order))
		}},
		{"notify_user", func(context.Context) error {
			return s.notifier.NotifyUser(order.UserID, notify.EventOrderCancelled, event)
		}},
		{"notify_admins", func(context.Context) error {
			return s.notifier.NotifyAdmins(notify.EventOrderStatusChanged, event)
		}},
	}
	hooks = s.withPublish(hooks, RoutingOrderCancelled, event)
	runHooks(ctx, order.ID, hooks)

	return order, nil
}

// ListOrders returns orders newest first. An empty filter lists every order.
func (s *OrderService) ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// GetOrder returns an order visible to actor. Customers only see their own.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor Actor) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order %s not found", orderID)
	}
	if actor.Role != models.RoleAdmin && order.UserID != actor.ID {
		return nil, AuthorizationError("not allowed to view this order")
	}
	return order, nil
}

func (s *OrderService) withPublish(hooks []hook, routingKey string, event OrderEvent) []hook {
	if s.publisher == nil {
		return hooks
	}
	return append(hooks, hook{"publish_" + routingKey, func(context.Context) error {
		body, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return s.publisher.Publish(routingKey, body)
	}})
}
