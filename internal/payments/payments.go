package payments

import (
	"errors"

	"storefront/internal/models"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// MetadataOrderID is the session metadata key that carries the order id.
const MetadataOrderID = "orderId"

// Session statuses reported by GetSession.
const (
	StatusPaid     = "paid"
	StatusComplete = "complete"
	StatusUnpaid   = "unpaid"
	StatusExpired  = "expired"
)

// LineItem is one product line shown on the hosted checkout page.
type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64 // minor units
	Quantity   int64
}

// SessionRequest describes a hosted checkout session for one order.
type SessionRequest struct {
	OrderID    string
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID              string
	URL             string
	Status          string
	OrderID         string
	CustomerEmail   string
	ShippingAddress models.ShippingAddress
}

// WebhookEvent is an authenticated provider notification about a checkout session.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	OrderID   string
}

// Completes reports whether the event signals a finished payment.
func (e WebhookEvent) Completes() bool {
	return e.Type == "checkout.session.completed" || e.Type == "checkout.session.async_payment_succeeded"
}
