package domain

import "github.com/shopspring/decimal"

// Totals is the result of pricing a cart. All values carry at most two
// decimal places.
type Totals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	ItemsDiscount     decimal.Decimal `json:"items_discount"`
	PromocodeDiscount decimal.Decimal `json:"promocode_discount"`
	Total             decimal.Decimal `json:"total"`
}

// PriceCart computes cart totals from the given lines and an optional
// promocode. The subtotal sums applied prices (promotional where a promotion
// ran, base otherwise); the items discount is what the line promotions saved
// relative to base prices. The promocode discount is computed once against
// the whole subtotal, never per line, and is rounded half-up to two decimal
// places. A nil promocode means no cart-level discount.
//
// The function is pure: identical inputs always produce identical totals.
func PriceCart(lines []CartLine, promo *Promocode) Totals {
	subtotal := decimal.Zero
	itemsDiscount := decimal.Zero

	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(line.AppliedPrice.Mul(qty))
		itemsDiscount = itemsDiscount.Add(line.BasePrice.Sub(line.AppliedPrice).Mul(qty))
	}

	promoDiscount := decimal.Zero
	if promo != nil {
		promoDiscount = promo.Discount(subtotal)
	}

	return Totals{
		Subtotal:          subtotal,
		ItemsDiscount:     itemsDiscount,
		PromocodeDiscount: promoDiscount,
		Total:             subtotal.Sub(promoDiscount),
	}
}
