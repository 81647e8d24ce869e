package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tavori/storefront/internal/domain"
	apperrors "github.com/tavori/storefront/pkg/errors"
)

// InsufficientStockError reports which product failed the conditional stock
// decrement inside the commit transaction. It unwraps to
// apperrors.ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: insufficient stock", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error {
	return apperrors.ErrInsufficientStock
}

// CartRepository defines persistence operations for carts and their lines.
type CartRepository interface {
	// GetByUserID retrieves a user's cart with its lines and product state.
	GetByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// GetBySessionToken retrieves an anonymous cart with its lines and
	// product state.
	GetBySessionToken(ctx context.Context, token string) (*domain.Cart, error)

	// Create inserts a new empty cart.
	Create(ctx context.Context, cart *domain.Cart) error

	// UpsertLine inserts a line, or adds its quantity to the existing line
	// for the same product, refreshing the price snapshot.
	UpsertLine(ctx context.Context, line *domain.CartLine) error

	// UpdateLineQuantity sets the quantity of a line scoped to its cart.
	// Returns apperrors.ErrNotFound when no such line exists in that cart.
	UpdateLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error

	// DeleteLine removes a line scoped to its cart. Returns
	// apperrors.ErrNotFound when no such line exists in that cart.
	DeleteLine(ctx context.Context, cartID, lineID string) error

	// Merge folds the source cart's lines into the target cart inside one
	// transaction (quantities summed for shared products, unique lines
	// moved) and deletes the source cart.
	Merge(ctx context.Context, targetCartID, sourceCartID string) error

	// Touch pushes the cart's updated_at and expires_at forward.
	Touch(ctx context.Context, cartID string, expiresAt *time.Time) error

	// DeleteExpired removes anonymous carts whose expiry has passed and
	// returns how many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProductRepository defines read access to the catalog.
type ProductRepository interface {
	// GetByID retrieves an active product. Inactive or missing products
	// yield apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs retrieves active products for the given ids, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

// PromocodeRepository defines read access to promocodes. The usage counter
// is written only by OrderRepository.Commit.
type PromocodeRepository interface {
	// GetByCode retrieves a promocode by its public code regardless of
	// activation or window state; validation is the service's job.
	GetByCode(ctx context.Context, code string) (*domain.Promocode, error)
}

// OrderCommit carries everything the commit transaction writes.
type OrderCommit struct {
	Order  *domain.Order
	CartID string
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Commit atomically inserts an order with its frozen lines, decrements
	// stock per line, increments the promocode usage counter when one is
	// attached, and empties the cart. Conditional updates are the
	// authority: a failed stock predicate yields ErrInsufficientStock and
	// a failed promocode predicate yields ErrPromocodeExhausted, either
	// rolling back the whole transaction.
	Commit(ctx context.Context, commit OrderCommit) error

	// GetByNumber retrieves an order with its lines by order number.
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// ListByUser returns a user's orders, newest first, without lines.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)

	// UpdateStatus transitions an order's status.
	UpdateStatus(ctx context.Context, orderID, status string) error
}
