package payment

import (
	"context"

	"github.com/tavori/storefront/internal/domain"
)

// MockProvider is a local Provider for development and tests. It returns a
// deterministic URL derived from the order number.
type MockProvider struct {
	BaseURL string
}

// NewMockProvider creates a mock payment provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{BaseURL: "https://pay.example.test"}
}

// CreatePaymentLink returns a deterministic payment URL.
func (m *MockProvider) CreatePaymentLink(_ context.Context, order *domain.Order) (string, error) {
	return m.BaseURL + "/checkout/" + order.OrderNumber, nil
}
