package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

// Config holds every setting the storefront needs at start-up.
type Config struct {
	Env       string
	AppPort   string
	PublicURL string

	DatabaseURL string
	DBDriver    string

	StripeSecretKey     string
	StripeWebhookSecret string
	EasyPostAPIKey      string
	JWTSecret           string

	RabbitMQURL string
	UploadDir   string
	Currency    currency.Unit

	ShipFrom ShipFrom
}

// ShipFrom is the origin address printed on every shipping label.
type ShipFrom struct {
	Company string
	Street1 string
	City    string
	State   string
	Zip     string
	Country string
}

// IsProduction reports whether internal error detail must be hidden from callers.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

var requiredKeys = []string{
	"DATABASE_URL",
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"EASYPOST_API_KEY",
	"JWT_SECRET",
}

// Load reads configuration from the environment. It fails when any required
// secret is absent so the process never starts half-configured.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("SHIP_FROM_COMPANY", "Medical Devices Co")
	v.SetDefault("SHIP_FROM_STREET1", "123 Shipper St")
	v.SetDefault("SHIP_FROM_CITY", "San Francisco")
	v.SetDefault("SHIP_FROM_STATE", "CA")
	v.SetDefault("SHIP_FROM_ZIP", "94111")
	v.SetDefault("SHIP_FROM_COUNTRY", "US")
	v.AutomaticEnv()

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	driver := v.GetString("DB_DRIVER")
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	unit, err := currency.ParseISO(v.GetString("CURRENCY"))
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY: %w", err)
	}
	if unit != currency.USD {
		return nil, fmt.Errorf("unsupported CURRENCY %s: only USD is supported", unit)
	}

	return &Config{
		Env:                 v.GetString("APP_ENV"),
		AppPort:             v.GetString("APP_PORT"),
		PublicURL:           strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		DBDriver:            driver,
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		EasyPostAPIKey:      v.GetString("EASYPOST_API_KEY"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		UploadDir:           v.GetString("UPLOAD_DIR"),
		Currency:            unit,
		ShipFrom: ShipFrom{
			Company: v.GetString("SHIP_FROM_COMPANY"),
			Street1: v.GetString("SHIP_FROM_STREET1"),
			City:    v.GetString("SHIP_FROM_CITY"),
			State:   v.GetString("SHIP_FROM_STATE"),
			Zip:     v.GetString("SHIP_FROM_ZIP"),
			Country: v.GetString("SHIP_FROM_COUNTRY"),
		},
	}, nil
}
