package payment

import (
	"context"

	"github.com/tavori/storefront/internal/domain"
)

// Provider creates payment links for committed orders. Implementations must
// be safe for concurrent use. A provider failure never unwinds an order: the
// caller logs it and returns the order without a payment URL.
type Provider interface {
	// CreatePaymentLink requests a hosted payment page URL for the order.
	CreatePaymentLink(ctx context.Context, order *domain.Order) (string, error)
}
