package notify

import "time"

// Event names pushed to clients.
const (
	EventOrderCreated       = "orderCreated"
	EventOrderUpdated       = "orderUpdated"
	EventOrderCancelled     = "orderCancelled"
	EventOrderStatusChanged = "orderStatusChanged"

	eventJoined = "joined"
	eventError  = "error"
)

// Client requests.
const (
	joinUserRoom  = "joinUserRoom"
	joinAdminRoom = "joinAdminRoom"
)

// AdminRoom is the group every admin session joins.
const AdminRoom = "admin_room"

// UserRoom is the group key for one customer's sessions.
func UserRoom(userID string) string {
	return "user_" + userID
}

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type clientMessage struct {
	Event string `json:"event"`
	Token string `json:"token"`
}
