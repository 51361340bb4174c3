package models

import "errors"

// OrderStatus is the position of an order in its lifecycle.
type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

var validOrderStatuses = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusFulfilled: 2,
}

// ToOrderStatus parses a stored or client-supplied status string.
func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", errors.New("invalid order status")
}

// CanTransitionTo reports whether moving from s to next is a single forward step.
// pending -> confirmed -> fulfilled is the only valid path.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := validOrderStatuses[s]
	if !ok {
		return false
	}
	to, ok := validOrderStatuses[next]
	if !ok {
		return false
	}
	return to == from+1
}

// IsPaid reports whether payment for the order has been confirmed.
func (s OrderStatus) IsPaid() bool {
	return s == OrderStatusConfirmed || s == OrderStatusFulfilled
}
