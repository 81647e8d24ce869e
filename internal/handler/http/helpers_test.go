package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/internal/event"
	"github.com/tavori/storefront/internal/repository"
	"github.com/tavori/storefront/internal/service"
	"github.com/tavori/storefront/pkg/httputil"
	pkgkafka "github.com/tavori/storefront/pkg/kafka"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) GetBySessionToken(ctx context.Context, token string) (*domain.Cart, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) UpsertLine(ctx context.Context, line *domain.CartLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *mockCartRepository) UpdateLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error {
	args := m.Called(ctx, cartID, lineID, quantity)
	return args.Error(0)
}

func (m *mockCartRepository) DeleteLine(ctx context.Context, cartID, lineID string) error {
	args := m.Called(ctx, cartID, lineID)
	return args.Error(0)
}

func (m *mockCartRepository) Merge(ctx context.Context, targetCartID, sourceCartID string) error {
	args := m.Called(ctx, targetCartID, sourceCartID)
	return args.Error(0)
}

func (m *mockCartRepository) Touch(ctx context.Context, cartID string, expiresAt *time.Time) error {
	args := m.Called(ctx, cartID, expiresAt)
	return args.Error(0)
}

func (m *mockCartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.Product), args.Error(1)
}

type mockPromocodeRepository struct {
	mock.Mock
}

func (m *mockPromocodeRepository) GetByCode(ctx context.Context, code string) (*domain.Promocode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promocode), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Commit(ctx context.Context, commit repository.OrderCommit) error {
	args := m.Called(ctx, commit)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

type mockPaymentProvider struct {
	mock.Mock
}

func (m *mockPaymentProvider) CreatePaymentLink(ctx context.Context, order *domain.Order) (string, error) {
	args := m.Called(ctx, order)
	return args.String(0), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	kafkaCfg.WriteTimeout = 50 * time.Millisecond
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

type handlerFixture struct {
	carts      *mockCartRepository
	products   *mockProductRepository
	promocodes *mockPromocodeRepository
	orders     *mockOrderRepository
	payments   *mockPaymentProvider
	router     *chi.Mux
}

// newHandlerFixture builds both handlers over mocked repositories and mounts
// them on a router matching the production layout, including the JSON
// content-type gate.
func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		carts:      new(mockCartRepository),
		products:   new(mockProductRepository),
		promocodes: new(mockPromocodeRepository),
		orders:     new(mockOrderRepository),
		payments:   new(mockPaymentProvider),
	}

	logger := testLogger()
	producer := testEventProducer()

	cartSvc := service.NewCartService(f.carts, f.products, producer, logger)
	checkoutSvc := service.NewCheckoutService(f.carts, f.products, f.promocodes, f.orders, f.payments, producer, logger)

	cartHandler := NewCartHandler(cartSvc, logger)
	checkoutHandler := NewCheckoutHandler(checkoutSvc, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/cart", cartHandler.GetCart)
		r.Post("/cart/items", cartHandler.AddLine)
		r.Put("/cart/items/{id}", cartHandler.UpdateLine)
		r.Delete("/cart/items/{id}", cartHandler.RemoveLine)
		r.Post("/cart/merge", cartHandler.Merge)

		r.Post("/checkout", checkoutHandler.PlaceOrder)
		r.Get("/orders", checkoutHandler.ListOrders)
		r.Get("/orders/{number}", checkoutHandler.GetOrder)
		r.Post("/orders/{number}/cancel", checkoutHandler.CancelOrder)
	})
	f.router = r

	return f
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const (
	testUserID    = "user-123"
	testProductID = "550e8400-e29b-41d4-a716-446655440001"
)

func sampleUserCart() *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-001",
		UserID: testUserID,
		Items: []domain.CartLine{
			{
				ID:           "line-001",
				CartID:       "cart-001",
				ProductID:    testProductID,
				Quantity:     2,
				BasePrice:    dec("1000"),
				AppliedPrice: dec("1000"),
				Product: &domain.Product{
					ID:       testProductID,
					Article:  "WDG-001",
					Name:     "Widget",
					Price:    dec("1000"),
					Stock:    10,
					IsActive: true,
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
