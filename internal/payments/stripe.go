package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway creates and reads Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway builds a gateway bound to one secret key. The client is
// owned by the gateway rather than stored in the package-level stripe.Key.
func NewStripeGateway(secretKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}
}

// CreateSession opens a hosted checkout session for the order.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US"}),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataOrderID, req.OrderID)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toSession(s), nil
}

// GetSession fetches the authoritative state of a checkout session.
func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", sessionID, err)
	}
	return toSession(s), nil
}

// VerifyWebhook checks the Stripe-Signature header against the signing secret
// and extracts the checkout session the event refers to.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return result, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("stripe: decode event %s: %w", event.ID, err)
	}
	result.SessionID = s.ID
	result.OrderID = s.Metadata[MetadataOrderID]
	return result, nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	session := &Session{
		ID:      s.ID,
		URL:     s.URL,
		Status:  sessionStatus(s),
		OrderID: s.Metadata[MetadataOrderID],
	}

	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		session.CustomerEmail = s.CustomerDetails.Email
	} else {
		session.CustomerEmail = s.CustomerEmail
	}

	if s.ShippingDetails != nil && s.ShippingDetails.Address != nil {
		addr := s.ShippingDetails.Address
		session.ShippingAddress = models.ShippingAddress{
			Name:       s.ShippingDetails.Name,
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}
	return session
}

// sessionStatus folds Stripe's session status and payment status into one value.
func sessionStatus(s *stripe.CheckoutSession) string {
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return StatusPaid
	case s.Status == stripe.CheckoutSessionStatusExpired:
		return StatusExpired
	case s.PaymentStatus != "":
		return string(s.PaymentStatus)
	default:
		return string(s.Status)
	}
}
