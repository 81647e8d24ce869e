package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// Payment status constants.
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Order represents a committed purchase. Orders are never deleted;
// cancellation is a status transition.
type Order struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            string          `json:"user_id"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	CustomerName      string          `json:"customer_name"`
	CustomerEmail     string          `json:"customer_email"`
	CustomerPhone     string          `json:"customer_phone,omitempty"`
	DeliveryAddress   string          `json:"delivery_address"`
	Comment           string          `json:"comment,omitempty"`
	Items             []OrderLine     `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ItemsDiscount     decimal.Decimal `json:"items_discount"`
	PromocodeDiscount decimal.Decimal `json:"promocode_discount"`
	Total             decimal.Decimal `json:"total"`
	PromocodeID       string          `json:"promocode_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderLine is a frozen copy of a cart line at commit time. Later catalog
// edits never change what the customer sees on the order.
type OrderLine struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Article      string          `json:"article"`
	ImageURL     string          `json:"image_url,omitempty"`
	BasePrice    decimal.Decimal `json:"base_price"`
	AppliedPrice decimal.Decimal `json:"applied_price"`
	Quantity     int             `json:"quantity"`
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCanceled},
		OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCanceled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCanceled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCanceled:   {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// NewOrderNumber generates a human-readable order number from the current
// UTC time plus a random suffix. Collisions within the same second are
// possible; the database's unique constraint on order_number is the
// authority, and callers retry on conflict.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s%04d", now.UTC().Format("20060102150405"), rand.Intn(10000)) // #nosec G404 -- non-cryptographic suffix
}
