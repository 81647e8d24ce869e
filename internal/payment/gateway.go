package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tavori/storefront/internal/domain"
	"github.com/tavori/storefront/pkg/httpclient"
)

// GatewayConfig holds settings for the HTTP payment gateway.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
}

// Gateway is a payment Provider backed by an external HTTP payment service.
// Calls run through a retrying client wrapped in a circuit breaker so a
// flapping gateway fails fast instead of holding checkout responses open.
type Gateway struct {
	cfg    GatewayConfig
	client *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// NewGateway creates an HTTP payment gateway provider.
func NewGateway(cfg GatewayConfig, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg: cfg,
		client: httpclient.NewCircuitBreakerClient(
			"payment-gateway",
			httpclient.DefaultConfig(),
			httpclient.DefaultCircuitBreakerConfig(),
			logger,
		),
		logger: logger,
	}
}

type createLinkRequest struct {
	OrderNumber   string          `json:"order_number"`
	Amount        decimal.Decimal `json:"amount"`
	CustomerEmail string          `json:"customer_email"`
	Description   string          `json:"description"`
}

type createLinkResponse struct {
	PaymentURL string `json:"payment_url"`
}

// CreatePaymentLink requests a hosted payment page URL for the order.
func (g *Gateway) CreatePaymentLink(ctx context.Context, order *domain.Order) (string, error) {
	payload, err := json.Marshal(createLinkRequest{
		OrderNumber:   order.OrderNumber,
		Amount:        order.Total,
		CustomerEmail: order.CustomerEmail,
		Description:   fmt.Sprintf("Order %s", order.OrderNumber),
	})
	if err != nil {
		return "", fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/payment-links", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp)
	}

	var out createLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode payment response: %w", err)
	}
	if out.PaymentURL == "" {
		return "", fmt.Errorf("payment gateway returned empty payment_url")
	}

	g.logger.DebugContext(ctx, "payment link created",
		slog.String("order_number", order.OrderNumber),
	)

	return out.PaymentURL, nil
}
