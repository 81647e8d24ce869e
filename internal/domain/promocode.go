package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promocode discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Promocode represents a cart-level discount code. UsageLimit of zero means
// the code is uncapped; MinOrderAmount of zero means no minimum applies.
type Promocode struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	DiscountType   string          `json:"discount_type"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	UsageLimit     int             `json:"usage_limit"`
	UsedCount      int             `json:"used_count"`
	IsActive       bool            `json:"is_active"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidTo        time.Time       `json:"valid_to"`
}

// IsWithinWindow reports whether the code's validity window covers the given
// instant. The bounds are inclusive.
func (p *Promocode) IsWithinWindow(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// IsExhausted reports whether the usage cap has been reached. Uncapped codes
// are never exhausted.
func (p *Promocode) IsExhausted() bool {
	return p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit
}

// MeetsMinimum reports whether the cart subtotal satisfies the code's
// minimum order amount.
func (p *Promocode) MeetsMinimum(subtotal decimal.Decimal) bool {
	if p.MinOrderAmount.IsZero() {
		return true
	}
	return subtotal.GreaterThanOrEqual(p.MinOrderAmount)
}

// Discount computes the discount this code grants against the given
// subtotal. Percentage discounts are rounded half-up to two decimal places;
// fixed discounts never exceed the subtotal.
func (p *Promocode) Discount(subtotal decimal.Decimal) decimal.Decimal {
	switch p.DiscountType {
	case DiscountPercentage:
		return subtotal.Mul(p.Value).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountFixed:
		if p.Value.GreaterThan(subtotal) {
			return subtotal
		}
		return p.Value
	}
	return decimal.Zero
}
