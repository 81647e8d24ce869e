package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/internal/event"
	"github.com/tavori/storefront/internal/payment"
	"github.com/tavori/storefront/internal/repository"
	apperrors "github.com/tavori/storefront/pkg/errors"
)

// orderNumberRetries bounds how many times a commit is retried when the
// generated order number collides with an existing one.
const orderNumberRetries = 3

// CheckoutService turns a cart into a committed order.
type CheckoutService struct {
	carts      repository.CartRepository
	products   repository.ProductRepository
	promocodes repository.PromocodeRepository
	orders     repository.OrderRepository
	payments   payment.Provider
	producer   *event.Producer
	logger     *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	promocodes repository.PromocodeRepository,
	orders repository.OrderRepository,
	payments payment.Provider,
	producer *event.Producer,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:      carts,
		products:   products,
		promocodes: promocodes,
		orders:     orders,
		payments:   payments,
		producer:   producer,
		logger:     logger,
	}
}

// PlaceOrderInput holds the parameters for committing a cart to an order.
type PlaceOrderInput struct {
	PromocodeCode   string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	Comment         string
}

// PlaceOrderResult is the outcome of a successful commit. PaymentURL is
// empty when the payment provider was unavailable; the order stands either way.
type PlaceOrderResult struct {
	Order      *domain.Order
	PaymentURL string
}

// PlaceOrder commits the user's cart to an order. Prices and the promocode
// are evaluated against current catalog state; the order, its frozen lines,
// the stock decrements, the promocode redemption, and the cart emptying all
// land in one transaction or not at all.
func (s *CheckoutService) PlaceOrder(ctx context.Context, owner Owner, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if owner.UserID == "" {
		return nil, apperrors.InvalidInput("sign in to place an order")
	}
	if input.CustomerName == "" || input.CustomerEmail == "" || input.DeliveryAddress == "" {
		return nil, apperrors.InvalidInput("customer name, email, and delivery address are required")
	}

	cart, err := s.carts.GetByUserID(ctx, owner.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	// Reprice every line against the catalog as of now and fail fast on
	// stock. The conditional updates inside the transaction are the
	// authority; this pass exists to name the offending product before any
	// write happens.
	lines := make([]domain.CartLine, len(cart.Items))
	for i, line := range cart.Items {
		product := line.Product
		if product == nil || !product.IsActive {
			return nil, apperrors.NotFound("product", line.ProductID)
		}
		if !product.InStock(line.Quantity) {
			return nil, apperrors.InsufficientStock(product.Name, line.Quantity, product.Stock)
		}

		line.BasePrice = product.Price
		line.AppliedPrice = product.EffectivePrice()
		line.PromoApplied = product.IsOnPromotion()
		line.PromocodeEligible = !product.IsOnPromotion()
		lines[i] = line
	}

	now := time.Now().UTC()

	var promo *domain.Promocode
	if input.PromocodeCode != "" {
		subtotal := domain.PriceCart(lines, nil).Subtotal
		promo, err = s.validatePromocode(ctx, input.PromocodeCode, subtotal, now)
		if err != nil {
			return nil, err
		}
	}

	totals := domain.PriceCart(lines, promo)

	order := &domain.Order{
		ID:                uuid.New().String(),
		UserID:            owner.UserID,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusUnpaid,
		CustomerName:      input.CustomerName,
		CustomerEmail:     input.CustomerEmail,
		CustomerPhone:     input.CustomerPhone,
		DeliveryAddress:   input.DeliveryAddress,
		Comment:           input.Comment,
		Subtotal:          totals.Subtotal,
		ItemsDiscount:     totals.ItemsDiscount,
		PromocodeDiscount: totals.PromocodeDiscount,
		Total:             totals.Total,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if promo != nil {
		order.PromocodeID = promo.ID
	}

	order.Items = make([]domain.OrderLine, len(lines))
	for i, line := range lines {
		order.Items[i] = domain.OrderLine{
			ID:           uuid.New().String(),
			OrderID:      order.ID,
			ProductID:    line.ProductID,
			Name:         line.Product.Name,
			Article:      line.Product.Article,
			ImageURL:     line.Product.ImageURL,
			BasePrice:    line.BasePrice,
			AppliedPrice: line.AppliedPrice,
			Quantity:     line.Quantity,
		}
	}

	if err := s.commit(ctx, order, cart, input.PromocodeCode); err != nil {
		return nil, err
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	result := &PlaceOrderResult{Order: order}

	// Payment link is best-effort: a broken gateway never unwinds a
	// committed order.
	paymentURL, err := s.payments.CreatePaymentLink(ctx, order)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create payment link",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	} else {
		result.PaymentURL = paymentURL
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("user_id", order.UserID),
		slog.String("total", order.Total.String()),
	)

	return result, nil
}

// commit drives the transactional write, regenerating the order number on a
// uniqueness collision and translating repository sentinels into the error
// taxonomy the caller expects.
func (s *CheckoutService) commit(ctx context.Context, order *domain.Order, cart *domain.Cart, promocodeCode string) error {
	var err error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		order.OrderNumber = domain.NewOrderNumber(time.Now())

		err = s.orders.Commit(ctx, repository.OrderCommit{Order: order, CartID: cart.ID})
		if err == nil {
			return nil
		}
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		break
	}

	var stockErr *repository.InsufficientStockError
	if errors.As(err, &stockErr) {
		for _, line := range cart.Items {
			if line.ProductID == stockErr.ProductID && line.Product != nil {
				return apperrors.InsufficientStock(line.Product.Name, line.Quantity, line.Product.Stock)
			}
		}
		return apperrors.OutOfStock(stockErr.ProductID)
	}
	if errors.Is(err, apperrors.ErrPromocodeExhausted) {
		return apperrors.UsageLimitReached(promocodeCode)
	}
	if errors.Is(err, apperrors.ErrConflict) {
		return apperrors.PersistenceFailure(fmt.Errorf("order number collision persisted after %d attempts", orderNumberRetries))
	}
	return fmt.Errorf("commit order: %w", err)
}

// validatePromocode applies the advisory validation ordering: existence and
// window first, then the usage cap, then the order minimum. The conditional
// increment inside the commit transaction re-checks the cap authoritatively.
func (s *CheckoutService) validatePromocode(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*domain.Promocode, error) {
	promo, err := s.promocodes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidOrExpiredPromocode(code)
		}
		return nil, fmt.Errorf("get promocode: %w", err)
	}

	if !promo.IsActive || !promo.IsWithinWindow(now) {
		return nil, apperrors.InvalidOrExpiredPromocode(code)
	}
	if promo.IsExhausted() {
		return nil, apperrors.UsageLimitReached(code)
	}
	if !promo.MeetsMinimum(subtotal) {
		return nil, apperrors.BelowMinimumOrderAmount(code, promo.MinOrderAmount)
	}

	return promo, nil
}

// GetOrderByNumber retrieves a user's order. Someone else's order number
// reads as not found, never as forbidden.
func (s *CheckoutService) GetOrderByNumber(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	if userID == "" {
		return nil, apperrors.NotFound("order", orderNumber)
	}

	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderNumber)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", orderNumber)
	}

	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if userID == "" {
		return []domain.Order{}, nil
	}
	orders, err := s.orders.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// CancelOrder transitions a user's order to canceled. Orders are never
// deleted.
func (s *CheckoutService) CancelOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	order, err := s.GetOrderByNumber(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.CanTransitionTo(domain.OrderStatusCanceled) {
		return nil, apperrors.Conflict(fmt.Sprintf("order in status %q cannot be canceled", order.Status))
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCanceled); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, order.ID, order.Status, domain.OrderStatusCanceled); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	order.Status = domain.OrderStatusCanceled
	return order, nil
}
