package notification

import (
	"fmt"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
)

var statusMessages = map[order.OrderStatus]string{
	order.OrderStatusPending:        "Your order has been received and is waiting for confirmation.",
	order.OrderStatusConfirmed:      "Your order has been confirmed and will be prepared shortly.",
	order.OrderStatusPreparing:      "Our kitchen is now preparing your order.",
	order.OrderStatusOutForDelivery: "Your order is out for delivery and will arrive soon.",
	order.OrderStatusDelivered:      "Your order has been delivered. Enjoy your meal!",
	order.OrderStatusCancelled:      "Your order has been cancelled. Please contact us if you have questions.",
}

// StatusMessage returns the customer-facing text for an order status
func StatusMessage(status order.OrderStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Your order status has been updated to %s.", status)
}

// smsText is the short form sent over SMS
func smsText(storeName, orderNumber string, status order.OrderStatus) string {
	return fmt.Sprintf("%s: Order %s - %s", storeName, orderNumber, StatusMessage(status))
}
