package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartTTL is how long an anonymous cart lives before the background sweep
// may remove it. Touching the cart pushes the expiry forward.
const CartTTL = 30 * 24 * time.Hour

// Cart represents a shopping cart owned by either a signed-in user or an
// anonymous session.
type Cart struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id,omitempty"`
	SessionToken string     `json:"session_token,omitempty"`
	Items        []CartLine `json:"items"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// CartLine represents a single product entry in the cart. The prices are
// snapshots taken when the line was added or last updated; the checkout
// re-reads current product state before committing.
type CartLine struct {
	ID                string          `json:"id"`
	CartID            string          `json:"cart_id"`
	ProductID         string          `json:"product_id"`
	Quantity          int             `json:"quantity"`
	BasePrice         decimal.Decimal `json:"base_price"`
	AppliedPrice      decimal.Decimal `json:"applied_price"`
	PromoApplied      bool            `json:"promo_applied"`
	PromocodeEligible bool            `json:"promocode_eligible"`
	Product           *Product        `json:"product,omitempty"`
}

// IsAnonymous reports whether the cart belongs to an anonymous session.
func (c *Cart) IsAnonymous() bool {
	return c.UserID == ""
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, line := range c.Items {
		count += line.Quantity
	}
	return count
}

// FindLineByProduct returns the index of the line for the given product,
// or -1 when the cart has no such line.
func (c *Cart) FindLineByProduct(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// LineTotal returns applied price times quantity for this line.
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.AppliedPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
