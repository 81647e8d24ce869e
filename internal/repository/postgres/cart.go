package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/pkg/database"
	apperrors "github.com/tavori/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

const cartColumns = `id, COALESCE(user_id, ''), COALESCE(session_token, ''), created_at, updated_at, expires_at`

// GetByUserID retrieves a user's cart with its lines.
func (r *CartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	return r.getBy(ctx, "user_id", userID)
}

// GetBySessionToken retrieves an anonymous cart with its lines.
func (r *CartRepository) GetBySessionToken(ctx context.Context, token string) (*domain.Cart, error) {
	return r.getBy(ctx, "session_token", token)
}

func (r *CartRepository) getBy(ctx context.Context, column, value string) (*domain.Cart, error) {
	query := fmt.Sprintf("SELECT %s FROM carts WHERE %s = $1", cartColumns, column)

	var c domain.Cart
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&c.ID,
		&c.UserID,
		&c.SessionToken,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	lines, err := r.loadLines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = lines

	return &c, nil
}

// loadLines fetches cart lines joined with current product state so pricing
// and stock checks see the catalog as of now, not as of add-time.
func (r *CartRepository) loadLines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.base_price,
			ci.applied_price, ci.promo_applied, ci.promocode_eligible,
			p.article, p.name, p.price, COALESCE(p.promotional_price, 0),
			p.has_promotion, p.stock, p.is_active, p.image_url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		var (
			line    domain.CartLine
			product domain.Product
		)
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.Quantity,
			&line.BasePrice,
			&line.AppliedPrice,
			&line.PromoApplied,
			&line.PromocodeEligible,
			&product.Article,
			&product.Name,
			&product.Price,
			&product.PromotionalPrice,
			&product.HasPromotion,
			&product.Stock,
			&product.IsActive,
			&product.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		product.ID = line.ProductID
		line.Product = &product
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return lines, nil
}

// Create inserts a new empty cart.
func (r *CartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, session_token, created_at, updated_at, expires_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		cart.ID,
		cart.UserID,
		cart.SessionToken,
		cart.CreatedAt,
		cart.UpdatedAt,
		cart.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

// UpsertLine inserts a line or folds its quantity into the existing line for
// the same product, refreshing the price snapshot to current catalog state.
func (r *CartRepository) UpsertLine(ctx context.Context, line *domain.CartLine) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, base_price, applied_price, promo_applied, promocode_eligible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			base_price = EXCLUDED.base_price,
			applied_price = EXCLUDED.applied_price,
			promo_applied = EXCLUDED.promo_applied,
			promocode_eligible = EXCLUDED.promocode_eligible`

	_, err := r.pool.Exec(ctx, query,
		line.ID,
		line.CartID,
		line.ProductID,
		line.Quantity,
		line.BasePrice,
		line.AppliedPrice,
		line.PromoApplied,
		line.PromocodeEligible,
	)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

// UpdateLineQuantity sets a line's quantity scoped to its cart. The cart id
// in the predicate is the ownership check: a line id from another cart
// matches zero rows and reads as not found.
func (r *CartRepository) UpdateLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3",
		quantity, lineID, cartID,
	)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteLine removes a line scoped to its cart.
func (r *CartRepository) DeleteLine(ctx context.Context, cartID, lineID string) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND cart_id = $2",
		lineID, cartID,
	)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Merge folds the source cart into the target cart and deletes the source,
// all in one transaction. Quantities are summed for shared products; unique
// lines move over unchanged. Running it twice is harmless: the second run
// finds no source cart and does nothing.
func (r *CartRepository) Merge(ctx context.Context, targetCartID, sourceCartID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Fold shared products into the target's lines.
	_, err = tx.Exec(ctx, `
		UPDATE cart_items t
		SET quantity = t.quantity + s.quantity
		FROM cart_items s
		WHERE t.cart_id = $1 AND s.cart_id = $2 AND t.product_id = s.product_id`,
		targetCartID, sourceCartID,
	)
	if err != nil {
		return fmt.Errorf("merge shared lines: %w", err)
	}

	// Move lines for products the target does not have yet.
	_, err = tx.Exec(ctx, `
		UPDATE cart_items s
		SET cart_id = $1
		WHERE s.cart_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM cart_items t
			WHERE t.cart_id = $1 AND t.product_id = s.product_id
		  )`,
		targetCartID, sourceCartID,
	)
	if err != nil {
		return fmt.Errorf("move unique lines: %w", err)
	}

	// Drop the source cart; remaining duplicate lines cascade.
	_, err = tx.Exec(ctx, "DELETE FROM carts WHERE id = $1", sourceCartID)
	if err != nil {
		return fmt.Errorf("delete source cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Touch pushes the cart's updated_at and expiry forward.
func (r *CartRepository) Touch(ctx context.Context, cartID string, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE carts SET updated_at = NOW(), expires_at = $1 WHERE id = $2",
		expiresAt, cartID,
	)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// DeleteExpired removes anonymous carts whose expiry has passed.
func (r *CartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM carts WHERE user_id IS NULL AND expires_at IS NOT NULL AND expires_at < $1",
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired carts: %w", err)
	}
	return tag.RowsAffected(), nil
}
