package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/internal/repository"
	"github.com/tavori/storefront/pkg/database"
	apperrors "github.com/tavori/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Commit persists an order atomically. The conditional UPDATE predicates on
// stock and promocode usage are the authoritative checks: under concurrency
// the row locks they take serialize competing commits, and a predicate that
// matches zero rows rolls the whole transaction back.
func (r *OrderRepository) Commit(ctx context.Context, commit repository.OrderCommit) error {
	o := commit.Order

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", apperrors.PersistenceFailure(err))
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (id, order_number, user_id, status, payment_status,
			customer_name, customer_email, customer_phone, delivery_address, comment,
			subtotal, items_discount, promocode_discount, total, promocode_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, '')::uuid, $16, $17)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.CustomerName,
		o.CustomerEmail,
		o.CustomerPhone,
		o.DeliveryAddress,
		o.Comment,
		o.Subtotal,
		o.ItemsDiscount,
		o.PromocodeDiscount,
		o.Total,
		o.PromocodeID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("order number taken: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("insert order: %w", apperrors.PersistenceFailure(err))
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, article, image_url, base_price, applied_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Article,
			item.ImageURL,
			item.BasePrice,
			item.AppliedPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", apperrors.PersistenceFailure(err))
		}

		// Stock decrement guarded by the predicate. Zero rows means another
		// commit got there first.
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $1, order_count = order_count + 1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			item.Quantity, item.ProductID,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", apperrors.PersistenceFailure(err))
		}
		if tag.RowsAffected() == 0 {
			return &repository.InsufficientStockError{ProductID: item.ProductID}
		}
	}

	if o.PromocodeID != "" {
		// Uncapped codes still pass through here so every redemption counts.
		tag, err := tx.Exec(ctx, `
			UPDATE promocodes
			SET used_count = used_count + 1
			WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`,
			o.PromocodeID,
		)
		if err != nil {
			return fmt.Errorf("redeem promocode: %w", apperrors.PersistenceFailure(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("promocode %s: %w", o.PromocodeID, apperrors.ErrPromocodeExhausted)
		}
	}

	_, err = tx.Exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1", commit.CartID)
	if err != nil {
		return fmt.Errorf("empty cart: %w", apperrors.PersistenceFailure(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", apperrors.PersistenceFailure(err))
	}

	return nil
}

const orderColumns = `id, order_number, user_id, status, payment_status,
	customer_name, customer_email, customer_phone, delivery_address, comment,
	subtotal, items_discount, promocode_discount, total,
	COALESCE(promocode_id::text, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.DeliveryAddress,
		&o.Comment,
		&o.Subtotal,
		&o.ItemsDiscount,
		&o.PromocodeDiscount,
		&o.Total,
		&o.PromocodeID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByNumber retrieves an order with its lines by order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE order_number = $1", orderColumns)

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, name, article, image_url, base_price, applied_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, itemsQuery, o.ID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderLine, 0)
	for rows.Next() {
		var item domain.OrderLine
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Article,
			&item.ImageURL,
			&item.BasePrice,
			&item.AppliedPrice,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	o.Items = items

	return o, nil
}

// ListByUser returns a user's orders, newest first, without lines.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, orderColumns)

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus transitions an order's status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
