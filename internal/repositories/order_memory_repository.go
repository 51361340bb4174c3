package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
	txMu   sync.Mutex // serializes InTx callers, standing in for row locks
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// GetAll returns all orders, newest first.
func (r *MemoryOrderRepository) GetAll(_ context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orderList = append(orderList, cloneOrder(order))
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	clone := cloneOrder(order)
	return &clone, nil
}

// GetByIDForUpdate is GetByID; exclusivity comes from InTx.
func (r *MemoryOrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

// Create adds a new order together with its items.
func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return errors.New("no items in order")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, ErrDuplicate)
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// UpdateStatus applies the guarded transition.
func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id string, update StatusUpdate) error {
	if !update.From.CanTransitionTo(update.To) {
		return fmt.Errorf("invalid transition %s -> %s", update.From, update.To)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if order.Status != update.From {
		return fmt.Errorf("order %s is not %s: %w", id, update.From, ErrStatusConflict)
	}

	order.Status = update.To
	if c := update.Confirmation; c != nil {
		order.CustomerEmail = c.CustomerEmail
		order.ShippingAddress = c.ShippingAddress
		order.PaymentSessionID = c.PaymentSessionID
	}
	if f := update.Fulfillment; f != nil {
		order.TrackingNumber = f.TrackingNumber
		order.ShippingLabelURL = f.ShippingLabelURL
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// InTx runs fn exclusively against other InTx callers. When fn fails, only
// the orders written through the repository handed to fn are restored.
func (r *MemoryOrderRepository) InTx(_ context.Context, fn func(repo OrderRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	tx := &memoryOrderTx{MemoryOrderRepository: r, undo: make(map[string]*models.Order)}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memoryOrderTx remembers each order as it was before its first write.
// A nil undo entry means the order did not exist.
type memoryOrderTx struct {
	*MemoryOrderRepository
	undo map[string]*models.Order
}

func (tx *memoryOrderTx) Create(ctx context.Context, order *models.Order) error {
	if err := tx.MemoryOrderRepository.Create(ctx, order); err != nil {
		return err
	}
	if _, seen := tx.undo[order.ID]; !seen {
		tx.undo[order.ID] = nil
	}
	return nil
}

func (tx *memoryOrderTx) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	if _, seen := tx.undo[id]; !seen {
		tx.mu.RLock()
		order, ok := tx.orders[id]
		tx.mu.RUnlock()
		if ok {
			before := cloneOrder(order)
			tx.undo[id] = &before
		}
	}
	return tx.MemoryOrderRepository.UpdateStatus(ctx, id, update)
}

// InTx joins the running transaction.
func (tx *memoryOrderTx) InTx(_ context.Context, fn func(repo OrderRepository) error) error {
	return fn(tx)
}

func (tx *memoryOrderTx) rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	for id, before := range tx.undo {
		if before == nil {
			delete(tx.orders, id)
			continue
		}
		tx.orders[id] = *before
	}
}

func cloneOrder(order models.Order) models.Order {
	order.Items = append([]models.OrderItem(nil), order.Items...)
	return order
}
