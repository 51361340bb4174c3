package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShippingAddress is the destination captured by the payment provider at checkout.
type ShippingAddress struct {
	Name       string `json:"name,omitempty" gorm:"type:varchar(255);not null;default:''"`
	Line1      string `json:"line1" gorm:"type:varchar(255);not null;default:''"`
	Line2      string `json:"line2,omitempty" gorm:"type:varchar(255);not null;default:''"`
	City       string `json:"city" gorm:"type:varchar(100);not null;default:''"`
	State      string `json:"state" gorm:"type:varchar(100);not null;default:''"`
	PostalCode string `json:"postal_code" gorm:"type:varchar(20);not null;default:''"`
	Country    string `json:"country,omitempty" gorm:"type:varchar(2);not null;default:''"`
}

// IsZero reports whether no address has been captured yet.
func (a ShippingAddress) IsZero() bool {
	return a == ShippingAddress{}
}

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"orderId" gorm:"type:varchar(36);not null;index"`
	ProductID string          `json:"productId" gorm:"type:varchar(64);not null"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null;default:''"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"` // unit price at the time of order
}

// Subtotal is price * quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order.
type Order struct {
	ID               string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Status           OrderStatus     `json:"status" gorm:"type:varchar(16);not null"`
	Total            decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	CustomerEmail    string          `json:"customerEmail,omitempty" gorm:"type:varchar(255);not null;default:''"`
	ShippingAddress  ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentSessionID string          `json:"paymentSessionId,omitempty" gorm:"type:varchar(255);not null;default:''"`
	TrackingNumber   string          `json:"trackingNumber,omitempty" gorm:"type:varchar(255);not null;default:''"`
	ShippingLabelURL string          `json:"shippingLabelUrl,omitempty" gorm:"column:shipping_label_url;type:varchar(1024);not null;default:''"`
	Items            []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ItemsTotal sums price * quantity over the order's items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Confirmation is the payment data copied onto an order when it moves to confirmed.
type Confirmation struct {
	CustomerEmail    string
	ShippingAddress  ShippingAddress
	PaymentSessionID string
}

// Fulfillment is the shipping data stored when an order moves to fulfilled.
type Fulfillment struct {
	TrackingNumber   string
	ShippingLabelURL string
}
