package main

import (
	"errors"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the constructed collaborators NewApp wires into routes.
type Deps struct {
	Config   *config.Config
	Logger   *zap.SugaredLogger
	DB       *gorm.DB
	Orders   *services.OrderService
	Products *services.ProductService
	Auth     *services.AuthService
}

// NewApp builds the fiber application with every route registered.
func NewApp(d Deps) *fiber.App {
	verbose := !d.Config.IsProduction()

	app := fiber.New(fiber.Config{
		AppName:   "storefront",
		BodyLimit: 10 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				d.Logger.Errorw("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
			}
			body := fiber.Map{"message": utils.StatusMessage(code)}
			if verbose {
				body["error"] = err.Error()
			}
			return c.Status(code).JSON(body)
		},
	})

	app.Use(logger.New())

	app.Static("/uploads", d.Config.UploadDir)

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "connected",
		}
		if err := database.Ping(c.UserContext(), d.DB); err != nil {
			d.Logger.Warnw("health check: database unreachable", "error", err)
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		return c.JSON(body)
	})

	sellerOnly := middleware.AuthRequired(d.Auth, d.Logger)
	api := app.Group("/api")

	handlers.NewAuthHandler(d.Auth, d.Logger, verbose).RegisterRoutes(api, sellerOnly)
	handlers.NewProductHandler(d.Products, d.Config.UploadDir, d.Logger, verbose).RegisterRoutes(api, sellerOnly)
	handlers.NewOrderHandler(d.Orders, d.Logger, verbose).RegisterRoutes(api, sellerOnly)
	handlers.NewWebhookHandler(d.Orders, d.Logger).RegisterRoutes(api)

	return app
}
