package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/internal/event"
	"github.com/tavori/storefront/internal/repository"
	apperrors "github.com/tavori/storefront/pkg/errors"
)

// Owner identifies who a cart belongs to: a signed-in user, an anonymous
// session, or both during login.
type Owner struct {
	UserID       string
	SessionToken string
}

// IsZero reports whether no identity was supplied at all.
func (o Owner) IsZero() bool {
	return o.UserID == "" && o.SessionToken == ""
}

// CartService implements the business logic for cart operations.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// Resolve finds the caller's cart, creating an empty one when none exists.
// A signed-in identity wins over a session token. Newly created anonymous
// carts get a fresh session token and a 30-day expiry; the caller must
// persist the returned token to keep the cart.
func (s *CartService) Resolve(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if owner.UserID != "" {
		cart, err := s.carts.GetByUserID(ctx, owner.UserID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart by user: %w", err)
		}
		return s.create(ctx, owner.UserID, "")
	}

	if owner.SessionToken != "" {
		cart, err := s.carts.GetBySessionToken(ctx, owner.SessionToken)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get cart by session: %w", err)
		}
	}

	// Unknown or absent session: start a fresh anonymous cart. A stale
	// token from a purged cart ends up here too.
	return s.create(ctx, "", uuid.New().String())
}

func (s *CartService) create(ctx context.Context, userID, sessionToken string) (*domain.Cart, error) {
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:           uuid.New().String(),
		UserID:       userID,
		SessionToken: sessionToken,
		Items:        []domain.CartLine{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if userID == "" {
		expires := now.Add(domain.CartTTL)
		cart.ExpiresAt = &expires
	}

	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
		slog.Bool("anonymous", cart.IsAnonymous()),
	)

	return cart, nil
}

// AddLine adds a product to the caller's cart, folding the quantity into an
// existing line for the same product. The price snapshot is taken from the
// current promotion state; a line priced promotionally is not eligible for
// cart-level promocodes.
func (s *CartService) AddLine(ctx context.Context, owner Owner, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.Resolve(ctx, owner)
	if err != nil {
		return nil, err
	}

	// Bound the folded quantity by current stock so the cart never promises
	// more than the shelf holds. Checkout re-checks under the transaction.
	existing := 0
	if i := cart.FindLineByProduct(productID); i >= 0 {
		existing = cart.Items[i].Quantity
	}
	if !product.InStock(existing + quantity) {
		return nil, apperrors.InsufficientStock(product.Name, existing+quantity, product.Stock)
	}

	line := &domain.CartLine{
		ID:                uuid.New().String(),
		CartID:            cart.ID,
		ProductID:         productID,
		Quantity:          quantity,
		BasePrice:         product.Price,
		AppliedPrice:      product.EffectivePrice(),
		PromoApplied:      product.IsOnPromotion(),
		PromocodeEligible: !product.IsOnPromotion(),
	}

	if err := s.carts.UpsertLine(ctx, line); err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}

	if err := s.touch(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line added",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return s.reload(ctx, cart)
}

// UpdateLine sets the quantity of a cart line. The line must belong to the
// caller's cart; a line id from someone else's cart reads as not found.
func (s *CartService) UpdateLine(ctx context.Context, owner Owner, lineID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	cart, err := s.existing(ctx, owner)
	if err != nil {
		return nil, err
	}

	var line *domain.CartLine
	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			line = &cart.Items[i]
			break
		}
	}
	if line == nil {
		return nil, apperrors.NotFound("cart line", lineID)
	}

	if line.Product != nil && !line.Product.InStock(quantity) {
		return nil, apperrors.InsufficientStock(line.Product.Name, quantity, line.Product.Stock)
	}

	if err := s.carts.UpdateLineQuantity(ctx, cart.ID, lineID, quantity); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart line", lineID)
		}
		return nil, fmt.Errorf("update cart line: %w", err)
	}

	if err := s.touch(ctx, cart); err != nil {
		return nil, err
	}

	return s.reload(ctx, cart)
}

// RemoveLine deletes a cart line scoped to the caller's cart.
func (s *CartService) RemoveLine(ctx context.Context, owner Owner, lineID string) (*domain.Cart, error) {
	cart, err := s.existing(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.carts.DeleteLine(ctx, cart.ID, lineID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart line", lineID)
		}
		return nil, fmt.Errorf("delete cart line: %w", err)
	}

	if err := s.touch(ctx, cart); err != nil {
		return nil, err
	}

	return s.reload(ctx, cart)
}

// Merge folds the caller's anonymous session cart into their user cart at
// login. Quantities are summed for shared products; unique lines move over.
// Merging is idempotent: once the session cart is gone, repeat calls simply
// return the user cart.
func (s *CartService) Merge(ctx context.Context, userID, sessionToken string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required to merge carts")
	}

	userCart, err := s.Resolve(ctx, Owner{UserID: userID})
	if err != nil {
		return nil, err
	}

	if sessionToken == "" {
		return userCart, nil
	}

	sessionCart, err := s.carts.GetBySessionToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Already merged, or the session cart expired. Nothing to fold.
			return userCart, nil
		}
		return nil, fmt.Errorf("get session cart: %w", err)
	}

	if sessionCart.IsEmpty() {
		return userCart, nil
	}

	if err := s.carts.Merge(ctx, userCart.ID, sessionCart.ID); err != nil {
		return nil, fmt.Errorf("merge carts: %w", err)
	}

	if err := s.producer.PublishCartMerged(ctx, userCart.ID, sessionCart.ID, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.merged event",
			slog.String("cart_id", userCart.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "carts merged",
		slog.String("user_cart_id", userCart.ID),
		slog.String("session_cart_id", sessionCart.ID),
	)

	return s.reload(ctx, userCart)
}

// PurgeExpired removes anonymous carts past their expiry. Called by the
// background sweep.
func (s *CartService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.carts.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired carts: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired carts purged", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

// existing resolves the caller's cart without lazily creating one. Missing
// carts read as not found, as do carts belonging to someone else.
func (s *CartService) existing(ctx context.Context, owner Owner) (*domain.Cart, error) {
	var (
		cart *domain.Cart
		err  error
	)
	switch {
	case owner.UserID != "":
		cart, err = s.carts.GetByUserID(ctx, owner.UserID)
	case owner.SessionToken != "":
		cart, err = s.carts.GetBySessionToken(ctx, owner.SessionToken)
	default:
		return nil, apperrors.NotFound("cart", "")
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart", "")
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) touch(ctx context.Context, cart *domain.Cart) error {
	var expires *time.Time
	if cart.IsAnonymous() {
		e := time.Now().UTC().Add(domain.CartTTL)
		expires = &e
	}
	if err := s.carts.Touch(ctx, cart.ID, expires); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (s *CartService) reload(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	if cart.UserID != "" {
		return s.carts.GetByUserID(ctx, cart.UserID)
	}
	return s.carts.GetBySessionToken(ctx, cart.SessionToken)
}
