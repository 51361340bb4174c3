package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logging"
	"storefront/internal/payments"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/shipping"
	"storefront/pkg/rabbitmq"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func main() {
	logger, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("invalid configuration", "error", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("storefront stopped", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	orderRepo := repositories.NewGORMOrderRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	paymentGateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	fulfillmentGateway := shipping.NewEasyPostGateway(cfg.EasyPostAPIKey, shipping.FromAddress{
		Company: cfg.ShipFrom.Company,
		Street1: cfg.ShipFrom.Street1,
		City:    cfg.ShipFrom.City,
		State:   cfg.ShipFrom.State,
		Zip:     cfg.ShipFrom.Zip,
		Country: cfg.ShipFrom.Country,
	})

	// Lifecycle events are optional; without a broker the storefront still sells.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			logger.Warnw("rabbitmq unavailable, order events disabled", "error", err)
		} else {
			defer mqClient.Close()
			publisher = mqClient
			if err := mqClient.ConsumeOrderEvents(orderEventLogger(logger)); err != nil {
				logger.Warnw("failed to start order event consumer", "error", err)
			}
		}
	}

	orderService := services.NewOrderService(orderRepo, paymentGateway, fulfillmentGateway, publisher, logger, cfg.Currency, cfg.PublicURL)
	productService := services.NewProductService(productRepo, cfg.Currency)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)

	app := NewApp(Deps{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Orders:   orderService,
		Products: productService,
		Auth:     authService,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Infow("starting server", "addr", cfg.AppPort, "env", cfg.Env, "db", cfg.DBDriver)
		listenErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Errorw("error during fiber shutdown", "error", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}

// orderEventLogger records lifecycle events; confirmation emails would hang off here.
func orderEventLogger(logger *zap.SugaredLogger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("decode %s: %w", msg.RoutingKey, err)
		}
		logger.Infow("order event received",
			"type", event.Type,
			"orderId", event.OrderID,
			"status", event.Status,
			"total", event.Total.StringFixed(2),
			"occurredAt", event.OccurredAt)
		return nil
	}
}
