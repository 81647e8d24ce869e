package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID               string          `json:"id"`
	Article          string          `json:"article"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	PromotionalPrice decimal.Decimal `json:"promotional_price"`
	HasPromotion     bool            `json:"has_promotion"`
	Stock            int             `json:"stock"`
	OrderCount       int             `json:"order_count"`
	IsActive         bool            `json:"is_active"`
	ImageURL         string          `json:"image_url,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsOnPromotion reports whether a discounted unit price is in effect. A
// promotion flag without a positive promotional price is ignored.
func (p *Product) IsOnPromotion() bool {
	return p.HasPromotion && p.PromotionalPrice.IsPositive()
}

// EffectivePrice returns the price a customer pays for one unit: the
// promotional price when a promotion is running, the base price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.IsOnPromotion() {
		return p.PromotionalPrice
	}
	return p.Price
}

// InStock reports whether the requested quantity can be fulfilled.
func (p *Product) InStock(quantity int) bool {
	return p.Stock >= quantity
}
