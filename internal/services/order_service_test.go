package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"storefront/internal/models"
	"storefront/internal/payments"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/shipping"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Session), args.Error(1)
}

func (m *MockPaymentGateway) GetSession(ctx context.Context, sessionID string) (*payments.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Session), args.Error(1)
}

func (m *MockPaymentGateway) VerifyWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.WebhookEvent), args.Error(1)
}

type MockFulfillmentGateway struct {
	mock.Mock
}

func (m *MockFulfillmentGateway) PurchaseLabel(ctx context.Context, addr models.ShippingAddress) (*shipping.Label, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Label), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}

type orderFixture struct {
	svc  *services.OrderService
	repo *repositories.MemoryOrderRepository
	pay  *MockPaymentGateway
	ship *MockFulfillmentGateway
	pub  *MockPublisher
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		repo: repositories.NewMemoryOrderRepository(),
		pay:  new(MockPaymentGateway),
		ship: new(MockFulfillmentGateway),
		pub:  new(MockPublisher),
	}
	f.svc = services.NewOrderService(f.repo, f.pay, f.ship, f.pub, zap.NewNop().Sugar(), currency.USD, "https://shop.example.com/")
	return f
}

var springfield = models.ShippingAddress{
	Name:       "Jane Doe",
	Line1:      "1 Main St",
	City:       "Springfield",
	State:      "IL",
	PostalCode: "62704",
	Country:    "US",
}

// seedOrder stores an order with one line item and walks it up to status.
func (f *orderFixture) seedOrder(t *testing.T, status models.OrderStatus) *models.Order {
	t.Helper()
	ctx := context.Background()

	order := &models.Order{
		Status: models.OrderStatusPending,
		Total:  decimal.RequireFromString("39.98"),
		Items: []models.OrderItem{{
			ProductID: "1",
			Name:      "Pulse Oximeter",
			Quantity:  2,
			Price:     decimal.RequireFromString("19.99"),
		}},
	}
	require.NoError(t, f.repo.Create(ctx, order))

	if status == models.OrderStatusPending {
		return order
	}
	require.NoError(t, f.repo.UpdateStatus(ctx, order.ID, repositories.StatusUpdate{
		From: models.OrderStatusPending,
		To:   models.OrderStatusConfirmed,
		Confirmation: &models.Confirmation{
			CustomerEmail:    "jane@example.com",
			ShippingAddress:  springfield,
			PaymentSessionID: "cs_seed",
		},
	}))
	if status == models.OrderStatusConfirmed {
		return order
	}
	require.NoError(t, f.repo.UpdateStatus(ctx, order.ID, repositories.StatusUpdate{
		From:        models.OrderStatusConfirmed,
		To:          models.OrderStatusFulfilled,
		Fulfillment: &models.Fulfillment{TrackingNumber: "EZ0999"},
	}))
	return order
}

func paidSession(orderID, sessionID string) *payments.Session {
	return &payments.Session{
		ID:              sessionID,
		Status:          payments.StatusPaid,
		OrderID:         orderID,
		CustomerEmail:   "jane@example.com",
		ShippingAddress: springfield,
	}
}

func TestCreateOrder_TwoUnitCart(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.pub.On("Publish", services.OrdersExchange, services.EventOrderCreated, mock.Anything).Return(nil).Once()
	f.pay.On("CreateSession", mock.Anything, mock.MatchedBy(func(req payments.SessionRequest) bool {
		return len(req.LineItems) == 1 &&
			req.LineItems[0].UnitAmount == 1999 &&
			req.LineItems[0].Quantity == 2 &&
			req.Currency == "usd" &&
			strings.HasPrefix(req.SuccessURL, "https://shop.example.com/checkout/success?order_id="+req.OrderID) &&
			strings.HasSuffix(req.SuccessURL, "session_id={CHECKOUT_SESSION_ID}") &&
			req.CancelURL == "https://shop.example.com/cart?order_id="+req.OrderID
	})).Return(&payments.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil).Once()

	result, err := f.svc.CreateOrder(ctx, services.CreateOrderRequest{Items: []services.CartItem{{
		ProductID: "1",
		Name:      "Pulse Oximeter",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("19.99"),
	}}})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", result.URL)

	order, err := f.repo.GetByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "39.98", order.Total.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("19.99")))

	f.pay.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func TestCreateOrder_TotalMatchesRandomCarts(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	faker := gofakeit.New(42)

	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for range 25 {
		items := make([]services.CartItem, faker.IntRange(1, 6))
		for i := range items {
			items[i] = services.CartItem{
				ProductID: faker.UUID(),
				Name:      faker.ProductName(),
				Quantity:  faker.IntRange(1, 10),
				UnitPrice: decimal.NewFromFloat(faker.Price(0, 500)).Round(2),
			}
		}
		want := lo.Reduce(items, func(acc decimal.Decimal, item services.CartItem, _ int) decimal.Decimal {
			return acc.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}, decimal.Zero)

		var chargedCents int64
		f.pay.On("CreateSession", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(payments.SessionRequest)
				chargedCents = lo.SumBy(req.LineItems, func(li payments.LineItem) int64 { return li.UnitAmount * li.Quantity })
			}).
			Return(&payments.Session{ID: "cs", URL: "https://checkout.example"}, nil).Once()

		result, err := f.svc.CreateOrder(ctx, services.CreateOrderRequest{Items: items})
		require.NoError(t, err)

		order, err := f.repo.GetByID(ctx, result.OrderID)
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(want), "total %s, want %s", order.Total, want)
		assert.Len(t, order.Items, len(items))

		wantCents, err := models.ToMinorUnits(want, currency.USD)
		require.NoError(t, err)
		assert.Equal(t, wantCents, chargedCents)
	}
}

func TestCreateOrder_RejectsInvalidCarts(t *testing.T) {
	tests := []struct {
		name  string
		items []services.CartItem
		field string
	}{
		{name: "empty cart", items: nil, field: "items"},
		{
			name:  "zero quantity",
			items: []services.CartItem{{ProductID: "1", Name: "Mask", Quantity: 0, UnitPrice: decimal.RequireFromString("1.00")}},
			field: "items[0].quantity",
		},
		{
			name:  "negative price",
			items: []services.CartItem{{ProductID: "1", Name: "Mask", Quantity: 1, UnitPrice: decimal.RequireFromString("-0.01")}},
			field: "items[0].unitPrice",
		},
		{
			name:  "sub-cent price",
			items: []services.CartItem{{ProductID: "1", Name: "Mask", Quantity: 1, UnitPrice: decimal.RequireFromString("19.995")}},
			field: "items[0].unitPrice",
		},
		{
			name:  "missing product id",
			items: []services.CartItem{{Name: "Mask", Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")}},
			field: "items[0].productId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			ctx := context.Background()

			_, err := f.svc.CreateOrder(ctx, services.CreateOrderRequest{Items: tt.items})
			require.ErrorIs(t, err, services.ErrValidation)

			var verr *services.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)

			orders, err := f.repo.GetAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, orders)
			f.pay.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_GatewayFailureKeepsPendingOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.pay.On("CreateSession", mock.Anything, mock.Anything).Return(nil, errors.New("stripe: 503")).Once()

	_, err := f.svc.CreateOrder(ctx, services.CreateOrderRequest{Items: []services.CartItem{{
		ProductID: "1", Name: "Pulse Oximeter", Quantity: 1, UnitPrice: decimal.RequireFromString("19.99"),
	}}})
	require.ErrorIs(t, err, services.ErrGatewayUnavailable)
	assert.NotContains(t, err.Error(), "503")

	orders, err := f.repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPending, orders[0].Status)
}

func TestCreateOrder_PublishFailureIsIgnored(t *testing.T) {
	f := newOrderFixture(t)

	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.pay.On("CreateSession", mock.Anything, mock.Anything).Return(&payments.Session{ID: "cs", URL: "u"}, nil)

	_, err := f.svc.CreateOrder(context.Background(), services.CreateOrderRequest{Items: []services.CartItem{{
		ProductID: "1", Name: "Pulse Oximeter", Quantity: 1, UnitPrice: decimal.RequireFromString("19.99"),
	}}})
	assert.NoError(t, err)
}

func TestConfirmPayment_Paid(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusPending)

	f.pay.On("GetSession", mock.Anything, "cs_1").Return(paidSession(order.ID, "cs_1"), nil).Once()
	f.pub.On("Publish", services.OrdersExchange, services.EventOrderConfirmed, mock.Anything).Return(nil).Once()

	result, err := f.svc.ConfirmPayment(ctx, order.ID, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, payments.StatusPaid, result.Status)
	assert.Equal(t, models.OrderStatusConfirmed, result.Order.Status)

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, springfield, stored.ShippingAddress)
	assert.Equal(t, "jane@example.com", stored.CustomerEmail)
	assert.Equal(t, "cs_1", stored.PaymentSessionID)
	f.pub.AssertExpectations(t)
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusPending)

	f.pay.On("GetSession", mock.Anything, "cs_1").Return(paidSession(order.ID, "cs_1"), nil)
	f.pub.On("Publish", services.OrdersExchange, services.EventOrderConfirmed, mock.Anything).Return(nil)

	first, err := f.svc.ConfirmPayment(ctx, order.ID, "cs_1")
	require.NoError(t, err)
	second, err := f.svc.ConfirmPayment(ctx, order.ID, "cs_1")
	require.NoError(t, err)

	assert.Equal(t, first.Order, second.Order)
	f.pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestConfirmPayment_ConcurrentPollAndWebhook(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusPending)

	f.pay.On("GetSession", mock.Anything, "cs_1").Return(paidSession(order.ID, "cs_1"), nil)
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmPayment(ctx, order.ID, "cs_1")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	f.pub.AssertNumberOfCalls(t, "Publish", 1)

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestConfirmPayment_Unpaid(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusPending)

	f.pay.On("GetSession", mock.Anything, "cs_1").
		Return(&payments.Session{ID: "cs_1", Status: payments.StatusUnpaid, OrderID: order.ID}, nil)

	result, err := f.svc.ConfirmPayment(ctx, order.ID, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, payments.StatusUnpaid, result.Status)

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.True(t, stored.ShippingAddress.IsZero())
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPayment_Errors(t *testing.T) {
	t.Run("missing session id", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.seedOrder(t, models.OrderStatusPending)

		_, err := f.svc.ConfirmPayment(context.Background(), order.ID, "")
		assert.ErrorIs(t, err, services.ErrValidation)
		f.pay.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t)

		_, err := f.svc.ConfirmPayment(context.Background(), "missing", "cs_1")
		assert.ErrorIs(t, err, services.ErrOrderNotFound)
		f.pay.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	})

	t.Run("session of another order", func(t *testing.T) {
		f := newOrderFixture(t)
		ctx := context.Background()
		order := f.seedOrder(t, models.OrderStatusPending)
		f.pay.On("GetSession", mock.Anything, "cs_1").Return(paidSession("someone-else", "cs_1"), nil)

		_, err := f.svc.ConfirmPayment(ctx, order.ID, "cs_1")
		assert.ErrorIs(t, err, services.ErrSessionMismatch)

		stored, err := f.repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, stored.Status)
	})

	t.Run("gateway down", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.seedOrder(t, models.OrderStatusPending)
		f.pay.On("GetSession", mock.Anything, "cs_1").Return(nil, errors.New("connection refused"))

		_, err := f.svc.ConfirmPayment(context.Background(), order.ID, "cs_1")
		assert.ErrorIs(t, err, services.ErrGatewayUnavailable)
	})
}

func TestFulfillOrder_Confirmed(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusConfirmed)

	f.ship.On("PurchaseLabel", mock.Anything, springfield).
		Return(&shipping.Label{TrackingNumber: "EZ1000", LabelURL: "https://easypost.example/label.png"}, nil).Once()
	f.pub.On("Publish", services.OrdersExchange, services.EventOrderFulfilled, mock.Anything).Return(nil).Once()

	fulfilled, err := f.svc.FulfillOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFulfilled, fulfilled.Status)
	assert.Equal(t, "EZ1000", fulfilled.TrackingNumber)
	assert.Equal(t, "https://easypost.example/label.png", fulfilled.ShippingLabelURL)

	_, err = f.svc.FulfillOrder(ctx, order.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)

	f.ship.AssertNumberOfCalls(t, "PurchaseLabel", 1)
	f.pub.AssertExpectations(t)
}

func TestFulfillOrder_LabelWithoutTrackingNumber(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusConfirmed)

	f.ship.On("PurchaseLabel", mock.Anything, springfield).
		Return(&shipping.Label{ShipmentID: "shp_3", LabelURL: "https://easypost.example/shp_3.png"}, nil).Once()
	f.pub.On("Publish", services.OrdersExchange, services.EventOrderFulfilled, mock.Anything).Return(nil).Once()

	fulfilled, err := f.svc.FulfillOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFulfilled, fulfilled.Status)
	assert.Empty(t, fulfilled.TrackingNumber)
	assert.Equal(t, "https://easypost.example/shp_3.png", fulfilled.ShippingLabelURL)

	// the paid label is recorded, so a retry cannot buy another
	_, err = f.svc.FulfillOrder(ctx, order.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)
	f.ship.AssertNumberOfCalls(t, "PurchaseLabel", 1)
}

func TestFulfillOrder_PendingMakesNoGatewayCall(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusPending)
	before, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.FulfillOrder(ctx, order.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)

	after, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	f.ship.AssertNotCalled(t, "PurchaseLabel", mock.Anything, mock.Anything)
}

func TestFulfillOrder_UnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.FulfillOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestFulfillOrder_GatewayFailureIsRetriable(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusConfirmed)

	f.ship.On("PurchaseLabel", mock.Anything, springfield).Return(nil, errors.New("easypost: 500")).Once()

	_, err := f.svc.FulfillOrder(ctx, order.ID)
	assert.ErrorIs(t, err, services.ErrFulfillmentFailed)
	assert.ErrorIs(t, err, services.ErrGatewayUnavailable)

	stored, err := f.repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Empty(t, stored.TrackingNumber)

	f.ship.On("PurchaseLabel", mock.Anything, springfield).Return(&shipping.Label{TrackingNumber: "EZ1001"}, nil).Once()
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	fulfilled, err := f.svc.FulfillOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "EZ1001", fulfilled.TrackingNumber)
}

func TestFulfillOrder_ConcurrentCallersBuyOneLabel(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, models.OrderStatusConfirmed)

	f.ship.On("PurchaseLabel", mock.Anything, springfield).Return(&shipping.Label{TrackingNumber: "EZ1000"}, nil)
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.FulfillOrder(ctx, order.ID)
		}()
	}
	wg.Wait()

	succeeded := lo.CountBy(errs, func(err error) bool { return err == nil })
	rejected := lo.CountBy(errs, func(err error) bool { return errors.Is(err, services.ErrInvalidState) })
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	f.ship.AssertNumberOfCalls(t, "PurchaseLabel", 1)
}

func TestHandleWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	t.Run("invalid signature mutates nothing", func(t *testing.T) {
		f := newOrderFixture(t)
		ctx := context.Background()
		order := f.seedOrder(t, models.OrderStatusPending)
		f.pay.On("VerifyWebhook", payload, "t=1,v1=bad").Return(nil, payments.ErrInvalidSignature)

		_, err := f.svc.HandleWebhook(ctx, payload, "t=1,v1=bad")
		assert.ErrorIs(t, err, services.ErrInvalidSignature)

		stored, err := f.repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, stored.Status)
		f.pay.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	})

	t.Run("completed checkout confirms the order", func(t *testing.T) {
		f := newOrderFixture(t)
		ctx := context.Background()
		order := f.seedOrder(t, models.OrderStatusPending)
		f.pay.On("VerifyWebhook", payload, "sig").Return(&payments.WebhookEvent{
			ID: "evt_1", Type: "checkout.session.completed", SessionID: "cs_1", OrderID: order.ID,
		}, nil)
		f.pay.On("GetSession", mock.Anything, "cs_1").Return(paidSession(order.ID, "cs_1"), nil)
		f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)

		// redelivery of the same event succeeds too
		_, err = f.svc.HandleWebhook(ctx, payload, "sig")
		require.NoError(t, err)

		stored, err := f.repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
		f.pub.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("other events are ignored", func(t *testing.T) {
		f := newOrderFixture(t)
		f.pay.On("VerifyWebhook", payload, "sig").Return(&payments.WebhookEvent{
			ID: "evt_2", Type: "checkout.session.expired", SessionID: "cs_1", OrderID: "o",
		}, nil)

		event, err := f.svc.HandleWebhook(context.Background(), payload, "sig")
		require.NoError(t, err)
		assert.Equal(t, "checkout.session.expired", event.Type)
		f.pay.AssertNotCalled(t, "GetSession", mock.Anything, mock.Anything)
	})
}
