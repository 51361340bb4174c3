package handlers

import (
	"errors"

	"storefront/internal/payments"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const stripeSignatureHeader = "Stripe-Signature"

// WebhookHandler receives payment provider notifications.
type WebhookHandler struct {
	service *services.OrderService
	logger  *zap.SugaredLogger
}

func NewWebhookHandler(service *services.OrderService, logger *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/stripe", h.HandleStripe)
}

// HandleStripe acknowledges every authentic event it can do nothing more
// about, and answers 500 only when a retry could succeed.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	event, err := h.service.HandleWebhook(c.UserContext(), c.Body(), c.Get(stripeSignatureHeader))
	if event == nil {
		event = &payments.WebhookEvent{}
	}

	switch {
	case err == nil:
		h.logger.Debugw("webhook handled", "eventId", event.ID, "type", event.Type)
	case errors.Is(err, services.ErrInvalidSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid signature"})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid payload"})
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrSessionMismatch),
		errors.Is(err, services.ErrInvalidState):
		h.logger.Warnw("webhook event not applied", "eventId", event.ID, "orderId", event.OrderID, "error", err)
	default:
		h.logger.Errorw("webhook processing failed", "eventId", event.ID, "orderId", event.OrderID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Webhook processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}
