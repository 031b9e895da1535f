package mailer

import (
	"fmt"
	"strings"
	"time"

	"foodorder/internal/models"
)

// OrderPlaced is the operator notice for a new order.
func OrderPlaced(to string, order *models.Order) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "A new order %s was placed by user %s.\n\n", order.ID, order.UserID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %d x %s @ %s\n", item.Quantity, item.Name, item.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nItems price: %s\n", order.ItemsPrice.StringFixed(2))
	fmt.Fprintf(&b, "Payment: %s\n", order.PaymentMethod)
	fmt.Fprintf(&b, "Deliver to: %s, %s %s\n",
		order.ShippingAddress.Address, order.ShippingAddress.City, order.ShippingAddress.PostalCode)

	return Message{
		To:      to,
		Subject: "New order " + order.ID,
		Body:    b.String(),
	}
}

// OrderCancelled tells a customer an admin cancelled their order.
func OrderCancelled(to, name string, order *models.Order) Message {
	body := fmt.Sprintf("Hi %s,\n\nYour order %s has been cancelled.\nReason: %s\n\nWe are sorry for the inconvenience.\n",
		name, order.ID, order.CancelReason)
	return Message{
		To:      to,
		Subject: "Your order " + order.ID + " was cancelled",
		Body:    body,
	}
}

// PasswordReset carries a one-time password reset code.
func PasswordReset(to, code string, ttl time.Duration) Message {
	body := fmt.Sprintf("Your password reset code is %s.\nIt expires in %d minutes. If you did not ask for a reset, ignore this email.\n",
		code, int(ttl.Minutes()))
	return Message{
		To:      to,
		Subject: "Password reset code",
		Body:    body,
	}
}
