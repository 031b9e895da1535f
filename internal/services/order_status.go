package services

import "foodorder/internal/models"

// transitions lists the statuses an admin may move an order to from each status.
// Non-terminal statuses may move anywhere, including backwards.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    models.OrderStatuses,
	models.OrderStatusProcessing: models.OrderStatuses,
	models.OrderStatusShipped:    models.OrderStatuses,
	models.OrderStatusDelivered:  nil,
	models.OrderStatusCancelled:  nil,
}

// ValidStatus reports whether s is one of the five lifecycle statuses.
func ValidStatus(s models.OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.OrderStatus) bool {
	return ValidStatus(s) && len(transitions[s]) == 0
}

// CanTransition reports whether an admin may move an order from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
