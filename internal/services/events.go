package services

import (
	"encoding/json"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrdersExchange is the topic exchange order lifecycle events go to.
const OrdersExchange = "orders"

const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderFulfilled = "order.fulfilled"
)

// EventPublisher delivers a message to an exchange. *rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderEvent is the JSON body of every lifecycle event.
type OrderEvent struct {
	Type       string             `json:"type"`
	OrderID    string             `json:"orderId"`
	Status     models.OrderStatus `json:"status"`
	Total      decimal.Decimal    `json:"total"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// publishEvent is best effort: a broken broker never fails an order operation.
func publishEvent(pub EventPublisher, logger *zap.SugaredLogger, eventType string, order *models.Order) {
	if pub == nil {
		return
	}

	body, err := json.Marshal(OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Errorw("failed to marshal order event", "type", eventType, "orderId", order.ID, "error", err)
		return
	}

	if err := pub.Publish(OrdersExchange, eventType, body); err != nil {
		logger.Warnw("failed to publish order event", "type", eventType, "orderId", order.ID, "error", err)
		return
	}
	logger.Debugw("published order event", "type", eventType, "orderId", order.ID)
}
