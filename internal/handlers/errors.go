package handlers

import (
	"errors"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// genericFailure is what callers see for anything that is not their fault.
const genericFailure = "Something went wrong, please try again"

// errorStatus maps domain errors onto HTTP status codes. Order matters:
// ErrFulfillmentFailed also matches ErrGatewayUnavailable.
var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrValidation, fiber.StatusBadRequest},
	{services.ErrSessionMismatch, fiber.StatusBadRequest},
	{services.ErrInvalidSignature, fiber.StatusBadRequest},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{services.ErrOrderNotFound, fiber.StatusNotFound},
	{services.ErrProductNotFound, fiber.StatusNotFound},
	{services.ErrInvalidState, fiber.StatusConflict},
	{services.ErrConflict, fiber.StatusConflict},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return fiber.StatusInternalServerError
}

// errorResponder writes error responses. Server-side detail is only exposed
// outside production.
type errorResponder struct {
	logger  *zap.SugaredLogger
	verbose bool
}

func (r errorResponder) respond(c *fiber.Ctx, err error, message string) error {
	status := statusFor(err)
	body := fiber.Map{"message": message}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		body["errors"] = verr.Fields
	case status < fiber.StatusInternalServerError:
		body["error"] = err.Error()
	default:
		r.logger.Errorw(message, "method", c.Method(), "path", c.Path(), "error", err)
		body["message"] = genericFailure
		if r.verbose {
			body["error"] = err.Error()
		}
	}
	return c.Status(status).JSON(body)
}
