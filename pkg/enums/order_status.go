package enums

import "fmt"

// OrderStatus maps to the order_status column of orders.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDisputed  OrderStatus = "DISPUTED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusAccepted,
	OrderStatusShipped,
	OrderStatusDisputed,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
