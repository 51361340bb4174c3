package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/repositories"
	"storefront/internal/shipping"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// PaymentGateway creates hosted checkout sessions and reports their state.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error)
	GetSession(ctx context.Context, sessionID string) (*payments.Session, error)
	VerifyWebhook(payload []byte, signature string) (*payments.WebhookEvent, error)
}

// FulfillmentGateway buys a shipping label for an address.
type FulfillmentGateway interface {
	PurchaseLabel(ctx context.Context, addr models.ShippingAddress) (*shipping.Label, error)
}

// CartItem is one line of a submitted cart. UnitPrice is taken as sent.
type CartItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	Items []CartItem `json:"items" validate:"required,min=1,dive"`
}

// CheckoutResult tells the client where to pay.
type CheckoutResult struct {
	OrderID   string `json:"orderId"`
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// PaymentResult is the outcome of ConfirmPayment. Status is the gateway's
// session status; Order reflects the store after the call.
type PaymentResult struct {
	Status string        `json:"status"`
	Order  *models.Order `json:"order,omitempty"`
}

// OrderService owns the order lifecycle: pending -> confirmed -> fulfilled.
type OrderService struct {
	orders    repositories.OrderRepository
	payments  PaymentGateway
	shipping  FulfillmentGateway
	publisher EventPublisher
	logger    *zap.SugaredLogger
	validate  *validator.Validate
	currency  currency.Unit
	publicURL string
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orders repositories.OrderRepository,
	paymentGateway PaymentGateway,
	fulfillmentGateway FulfillmentGateway,
	publisher EventPublisher,
	logger *zap.SugaredLogger,
	unit currency.Unit,
	publicURL string,
) *OrderService {
	return &OrderService{
		orders:    orders,
		payments:  paymentGateway,
		shipping:  fulfillmentGateway,
		publisher: publisher,
		logger:    logger,
		validate:  newValidator(),
		currency:  unit,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// ListOrders returns every order, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, s.translateStoreError(id, err)
	}
	return order, nil
}

// CreateOrder stores a pending order for the cart and opens a payment session for it.
// When the session cannot be created the pending order stays in the store.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CheckoutResult, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	lineItems := make([]payments.LineItem, 0, len(req.Items))
	for i, item := range req.Items {
		cents, err := models.ToMinorUnits(item.UnitPrice, s.currency)
		if err != nil {
			return nil, newValidationError(fmt.Sprintf("items[%d].unitPrice", i), "must be a whole number of cents")
		}
		lineItems = append(lineItems, payments.LineItem{
			Name:       item.Name,
			Image:      item.Image,
			UnitAmount: cents,
			Quantity:   int64(item.Quantity),
		})
	}

	order := &models.Order{
		ID:     uuid.New().String(),
		Status: models.OrderStatusPending,
		Items: lo.Map(req.Items, func(item CartItem, _ int) models.OrderItem {
			return models.OrderItem{
				ID:        uuid.New().String(),
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.UnitPrice,
			}
		}),
	}
	order.Total = order.ItemsTotal()

	totalCents, err := models.ToMinorUnits(order.Total, s.currency)
	if err != nil {
		return nil, newValidationError("items", "total must be a whole number of cents")
	}
	lineCents := lo.SumBy(lineItems, func(li payments.LineItem) int64 { return li.UnitAmount * li.Quantity })
	if lineCents != totalCents {
		return nil, fmt.Errorf("order total %s does not match %d cents charged", order.Total, lineCents)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrConstraint) {
			return nil, newValidationError("items", "rejected by store")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.logger.Infow("order created", "orderId", order.ID, "total", order.Total.StringFixed(2), "items", len(order.Items))
	publishEvent(s.publisher, s.logger, EventOrderCreated, order)

	session, err := s.payments.CreateSession(ctx, payments.SessionRequest{
		OrderID:    order.ID,
		Currency:   strings.ToLower(s.currency.String()),
		LineItems:  lineItems,
		SuccessURL: s.successURL(order.ID),
		CancelURL:  s.cancelURL(order.ID),
	})
	if err != nil {
		s.logger.Errorw("failed to create payment session", "orderId", order.ID, "error", err)
		return nil, fmt.Errorf("%w: payment session for order %s", ErrGatewayUnavailable, order.ID)
	}

	return &CheckoutResult{
		OrderID:   order.ID,
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

// ConfirmPayment checks the payment session and moves a paid order to confirmed.
// It is safe to call repeatedly and concurrently: an order that is already
// confirmed (or further) is returned unchanged.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID, sessionID string) (*PaymentResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, newValidationError("sessionId", "is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.translateStoreError(orderID, err)
	}

	session, err := s.payments.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Errorw("failed to fetch payment session", "orderId", orderID, "sessionId", sessionID, "error", err)
		return nil, fmt.Errorf("%w: payment session %s", ErrGatewayUnavailable, sessionID)
	}
	if session.OrderID != orderID {
		s.logger.Warnw("payment session belongs to another order",
			"orderId", orderID, "sessionId", sessionID, "sessionOrderId", session.OrderID)
		return nil, ErrSessionMismatch
	}

	if !sessionPaid(session.Status) {
		return &PaymentResult{Status: session.Status, Order: order}, nil
	}
	if order.Status.IsPaid() {
		return &PaymentResult{Status: session.Status, Order: order}, nil
	}

	err = s.orders.UpdateStatus(ctx, orderID, repositories.StatusUpdate{
		From: models.OrderStatusPending,
		To:   models.OrderStatusConfirmed,
		Confirmation: &models.Confirmation{
			CustomerEmail:    session.CustomerEmail,
			ShippingAddress:  session.ShippingAddress,
			PaymentSessionID: session.ID,
		},
	})
	confirmedHere := err == nil
	if err != nil && !errors.Is(err, repositories.ErrStatusConflict) {
		return nil, s.translateStoreError(orderID, err)
	}

	order, err = s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.translateStoreError(orderID, err)
	}
	if !order.Status.IsPaid() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidState, orderID, order.Status)
	}

	if confirmedHere {
		s.logger.Infow("order confirmed", "orderId", orderID, "sessionId", session.ID)
		publishEvent(s.publisher, s.logger, EventOrderConfirmed, order)
	}
	return &PaymentResult{Status: session.Status, Order: order}, nil
}

// FulfillOrder buys a shipping label for a confirmed order and records it.
// The order row stays locked for the gateway call, so a concurrent second
// caller sees fulfilled and gets ErrInvalidState instead of buying again.
func (s *OrderService) FulfillOrder(ctx context.Context, orderID string) (*models.Order, error) {
	err := s.orders.InTx(ctx, func(repo repositories.OrderRepository) error {
		order, err := repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return s.translateStoreError(orderID, err)
		}
		if order.Status != models.OrderStatusConfirmed {
			return fmt.Errorf("%w: order %s is %s, must be %s",
				ErrInvalidState, orderID, order.Status, models.OrderStatusConfirmed)
		}

		label, err := s.shipping.PurchaseLabel(ctx, order.ShippingAddress)
		if err != nil {
			s.logger.Errorw("failed to purchase shipping label", "orderId", orderID, "error", err)
			return fmt.Errorf("%w: %w", ErrFulfillmentFailed, ErrGatewayUnavailable)
		}
		if label.TrackingNumber == "" {
			s.logger.Warnw("shipping label bought without tracking number",
				"orderId", orderID, "shipmentId", label.ShipmentID, "labelUrl", label.LabelURL)
		}

		err = repo.UpdateStatus(ctx, orderID, repositories.StatusUpdate{
			From: models.OrderStatusConfirmed,
			To:   models.OrderStatusFulfilled,
			Fulfillment: &models.Fulfillment{
				TrackingNumber:   label.TrackingNumber,
				ShippingLabelURL: label.LabelURL,
			},
		})
		if err != nil {
			// The label is paid for at this point; keep enough to reconcile by hand.
			s.logger.Errorw("label purchased but order not updated",
				"orderId", orderID, "shipmentId", label.ShipmentID, "trackingNumber", label.TrackingNumber,
				"labelUrl", label.LabelURL, "error", err)
			if errors.Is(err, repositories.ErrStatusConflict) {
				return fmt.Errorf("%w: order %s changed during fulfillment", ErrInvalidState, orderID)
			}
			return s.translateStoreError(orderID, err)
		}

		s.logger.Infow("order fulfilled", "orderId", orderID, "trackingNumber", label.TrackingNumber, "carrier", label.Carrier)
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.translateStoreError(orderID, err)
	}
	publishEvent(s.publisher, s.logger, EventOrderFulfilled, order)
	return order, nil
}

// HandleWebhook authenticates a provider notification and confirms the order
// it refers to. It returns the verified event; events that do not complete a
// payment are returned without touching any order.
func (s *OrderService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*payments.WebhookEvent, error) {
	event, err := s.payments.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			s.logger.Warnw("rejected webhook", "error", err)
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if !event.Completes() {
		s.logger.Debugw("ignoring webhook event", "eventId", event.ID, "type", event.Type)
		return event, nil
	}
	if event.OrderID == "" {
		s.logger.Warnw("webhook session carries no order id", "eventId", event.ID, "sessionId", event.SessionID)
		return event, nil
	}

	if _, err := s.ConfirmPayment(ctx, event.OrderID, event.SessionID); err != nil {
		return event, err
	}
	return event, nil
}

func (s *OrderService) successURL(orderID string) string {
	// {CHECKOUT_SESSION_ID} is substituted by the provider and must stay unescaped.
	return fmt.Sprintf("%s/checkout/success?order_id=%s&session_id={CHECKOUT_SESSION_ID}",
		s.publicURL, url.QueryEscape(orderID))
}

func (s *OrderService) cancelURL(orderID string) string {
	return fmt.Sprintf("%s/cart?order_id=%s", s.publicURL, url.QueryEscape(orderID))
}

func (s *OrderService) translateStoreError(orderID string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return fmt.Errorf("order %s: %w", orderID, err)
}

func sessionPaid(status string) bool {
	return status == payments.StatusPaid || status == payments.StatusComplete
}
