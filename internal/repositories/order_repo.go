package repositories

import (
	"context"

	"storefront/internal/models"
)

// StatusUpdate is a guarded transition: it applies only while the order is still in From.
type StatusUpdate struct {
	From         models.OrderStatus
	To           models.OrderStatus
	Confirmation *models.Confirmation
	Fulfillment  *models.Fulfillment
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByIDForUpdate reads the order and holds it until the surrounding InTx returns.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	// Create persists the order together with its items, or nothing at all.
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatus returns ErrStatusConflict when the order is no longer in update.From.
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
	InTx(ctx context.Context, fn func(repo OrderRepository) error) error
}
