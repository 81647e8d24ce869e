package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/pkg/database"
	apperrors "github.com/tavori/storefront/pkg/errors"
)

// PromocodeRepository implements repository.PromocodeRepository using
// PostgreSQL. It is read-only: the usage counter moves only inside the order
// commit transaction.
type PromocodeRepository struct {
	pool database.DBTX
}

// NewPromocodeRepository creates a new PostgreSQL-backed promocode repository.
func NewPromocodeRepository(pool database.DBTX) *PromocodeRepository {
	return &PromocodeRepository{pool: pool}
}

// GetByCode retrieves a promocode by its public code. Activation, window,
// cap, and minimum checks belong to the caller.
func (r *PromocodeRepository) GetByCode(ctx context.Context, code string) (*domain.Promocode, error) {
	query := `
		SELECT id, code, discount_type, value, COALESCE(min_order_amount, 0),
			COALESCE(usage_limit, 0), used_count, is_active, valid_from, valid_to
		FROM promocodes
		WHERE code = $1`

	var p domain.Promocode
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&p.ID,
		&p.Code,
		&p.DiscountType,
		&p.Value,
		&p.MinOrderAmount,
		&p.UsageLimit,
		&p.UsedCount,
		&p.IsActive,
		&p.ValidFrom,
		&p.ValidTo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan promocode: %w", err)
	}

	return &p, nil
}
