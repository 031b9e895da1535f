package services

// Notifier pushes realtime events to connected sessions.
type Notifier interface {
	NotifyAdmins(event string, payload interface{}) error
	NotifyUser(userID, event string, payload interface{}) error
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// Broker routing keys for order events.
const (
	RoutingOrderCreated       = "order.created"
	RoutingOrderStatusChanged = "order.status_changed"
	RoutingOrderCancelled     = "order.cancelled"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role string
}
