package handlers

import (
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	errors  errorResponder
}

// NewOrderHandler creates a new OrderHandler. verbose exposes internal error
// detail in responses and must be false in production.
func NewOrderHandler(service *services.OrderService, logger *zap.SugaredLogger, verbose bool) *OrderHandler {
	return &OrderHandler{
		service: service,
		errors:  errorResponder{logger: logger, verbose: verbose},
	}
}

// RegisterRoutes registers the order routes. Checkout and payment polling are
// public; listing, reading and fulfilling orders go through sellerOnly.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, sellerOnly fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:orderId/check-payment", h.HandleCheckPayment)

	orderRoutes.Get("/", sellerOnly, h.HandleGetOrders)
	orderRoutes.Get("/:orderId", sellerOnly, h.HandleGetOrderByID)
	orderRoutes.Post("/:orderId/fulfill", sellerOnly, h.HandleFulfillOrder)
}

// HandleGetOrders lists every order, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext())
	if err != nil {
		return h.errors.respond(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order with its items.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return h.errors.respond(c, err, "Could not retrieve order")
	}
	return c.JSON(order)
}

// HandleCreateOrder stores the cart as a pending order and returns the checkout URL.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	result, err := h.service.CreateOrder(c.UserContext(), req)
	if err != nil {
		return h.errors.respond(c, err, "Could not start checkout")
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleCheckPayment is polled by the success page until the order is paid.
func (h *OrderHandler) HandleCheckPayment(c *fiber.Ctx) error {
	result, err := h.service.ConfirmPayment(c.UserContext(), c.Params("orderId"), c.Query("sessionId"))
	if err != nil {
		return h.errors.respond(c, err, "Could not check payment")
	}
	// The success page waits for status "confirmed"; until the order is paid
	// it sees the session status instead.
	status := result.Status
	if result.Order.Status.IsPaid() {
		status = string(result.Order.Status)
	}
	return c.JSON(fiber.Map{
		"status":        status,
		"paymentStatus": result.Status,
	})
}

// HandleFulfillOrder buys the shipping label for a confirmed order.
func (h *OrderHandler) HandleFulfillOrder(c *fiber.Ctx) error {
	order, err := h.service.FulfillOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return h.errors.respond(c, err, "Could not fulfill order")
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"trackingNumber":   order.TrackingNumber,
		"shippingLabelUrl": order.ShippingLabelURL,
	})
}
