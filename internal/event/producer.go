package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tavori/storefront/internal/domain"
	pkgkafka "github.com/tavori/storefront/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicOrderCreated       = "storefront.order.created"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicCartMerged         = "storefront.cart.merged"
)

// Aggregate type constants.
const (
	AggregateTypeOrder = "order"
	AggregateTypeCart  = "cart"
)

// Source identifier for events originating from this service.
const SourceStorefront = "storefront"

// OrderCreatedData is the payload for an order.created event (full order snapshot).
type OrderCreatedData struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            string          `json:"user_id"`
	Status            string          `json:"status"`
	CustomerEmail     string          `json:"customer_email"`
	Items             []OrderLineData `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ItemsDiscount     decimal.Decimal `json:"items_discount"`
	PromocodeDiscount decimal.Decimal `json:"promocode_discount"`
	Total             decimal.Decimal `json:"total"`
	PromocodeID       string          `json:"promocode_id,omitempty"`
}

// OrderLineData is the event payload for an order line.
type OrderLineData struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Article      string          `json:"article"`
	BasePrice    decimal.Decimal `json:"base_price"`
	AppliedPrice decimal.Decimal `json:"applied_price"`
	Quantity     int             `json:"quantity"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// CartMergedData is the payload for a cart.merged event.
type CartMergedData struct {
	UserCartID    string `json:"user_cart_id"`
	SessionCartID string `json:"session_cart_id"`
	UserID        string `json:"user_id"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event with the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderLineData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderLineData{
			ID:           item.ID,
			ProductID:    item.ProductID,
			Name:         item.Name,
			Article:      item.Article,
			BasePrice:    item.BasePrice,
			AppliedPrice: item.AppliedPrice,
			Quantity:     item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		Status:            order.Status,
		CustomerEmail:     order.CustomerEmail,
		Items:             items,
		Subtotal:          order.Subtotal,
		ItemsDiscount:     order.ItemsDiscount,
		PromocodeDiscount: order.PromocodeDiscount,
		Total:             order.Total,
		PromocodeID:       order.PromocodeID,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
	)

	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	data := OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}

	event, err := pkgkafka.NewEvent(TopicOrderStatusChanged, orderID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, event); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.status_changed event",
		slog.String("order_id", orderID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	return nil
}

// PublishCartMerged publishes a cart.merged event after a login-time fold.
func (p *Producer) PublishCartMerged(ctx context.Context, userCartID, sessionCartID, userID string) error {
	data := CartMergedData{
		UserCartID:    userCartID,
		SessionCartID: sessionCartID,
		UserID:        userID,
	}

	event, err := pkgkafka.NewEvent(TopicCartMerged, userCartID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.merged event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartMerged, event); err != nil {
		return fmt.Errorf("publish cart.merged event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.merged event",
		slog.String("user_cart_id", userCartID),
		slog.String("session_cart_id", sessionCartID),
	)

	return nil
}
