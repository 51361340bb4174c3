package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll retrieves all orders with their items, newest first.
func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, translateError("failed to get all orders", err)
	}
	return orders, nil
}

// GetByID retrieves a single order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("failed to get order %s", id), err)
	}
	return &order, nil
}

// GetByIDForUpdate locks the order row on postgres. SQLite runs on a single
// connection, so the surrounding transaction is already exclusive there.
func (r *GORMOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := q.First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("failed to lock order %s", id), err)
	}
	if err := r.db.WithContext(ctx).Find(&order.Items, "order_id = ?", id).Error; err != nil {
		return nil, translateError(fmt.Sprintf("failed to get items of order %s", id), err)
	}
	return &order, nil
}

// Create inserts the order and its items in one transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return errors.New("no items in order")
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return translateError("failed to create order", err)
		}
		if err := tx.Create(&order.Items).Error; err != nil {
			return translateError("failed to create order items", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// UpdateStatus performs the guarded transition described by update.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	if !update.From.CanTransitionTo(update.To) {
		return fmt.Errorf("invalid transition %s -> %s", update.From, update.To)
	}

	values := map[string]interface{}{"status": update.To}
	if c := update.Confirmation; c != nil {
		values["customer_email"] = c.CustomerEmail
		values["payment_session_id"] = c.PaymentSessionID
		values["shipping_name"] = c.ShippingAddress.Name
		values["shipping_line1"] = c.ShippingAddress.Line1
		values["shipping_line2"] = c.ShippingAddress.Line2
		values["shipping_city"] = c.ShippingAddress.City
		values["shipping_state"] = c.ShippingAddress.State
		values["shipping_postal_code"] = c.ShippingAddress.PostalCode
		values["shipping_country"] = c.ShippingAddress.Country
	}
	if f := update.Fulfillment; f != nil {
		values["tracking_number"] = f.TrackingNumber
		values["shipping_label_url"] = f.ShippingLabelURL
	}

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, update.From).
		Updates(values)
	if res.Error != nil {
		return translateError(fmt.Sprintf("failed to update status of order %s", id), res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(fmt.Sprintf("failed to check order %s", id), err)
	}
	if count == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("order %s is not %s: %w", id, update.From, ErrStatusConflict)
}

// InTx runs fn against a repository bound to a single transaction.
// Any error returned by fn rolls back every write made through it.
func (r *GORMOrderRepository) InTx(ctx context.Context, fn func(repo OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMOrderRepository{db: tx})
	})
}
