package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

var (
	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
	circuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"name"},
	)
)

// RegisterCircuitBreakerMetrics registers circuit breaker metrics with the
// provided registry.
func RegisterCircuitBreakerMetrics(reg prometheus.Registerer) {
	reg.MustRegister(circuitBreakerState, circuitBreakerTrips)
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultCircuitBreakerConfig returns sensible circuit breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:         3,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// CircuitBreakerClient wraps Client with a circuit breaker. After a run of
// consecutive failures the breaker opens and requests fail fast until the
// timeout elapses.
type CircuitBreakerClient struct {
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	name     string
	logger   *slog.Logger
	fallback func(ctx context.Context, req *http.Request) (*http.Response, error)
}

// NewCircuitBreakerClient creates a client protected by a named circuit breaker.
func NewCircuitBreakerClient(name string, clientCfg Config, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	c := &CircuitBreakerClient{
		client: New(clientCfg),
		name:   name,
		logger: logger,
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbCfg.ConsecutiveFailures
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			circuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			if to == gobreaker.StateOpen {
				circuitBreakerTrips.WithLabelValues(cbName).Inc()
			}
			logger.Warn("circuit breaker state change",
				slog.String("breaker", cbName),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](settings)
	return c
}

// WithFallback sets a fallback function invoked when the breaker is open.
func (c *CircuitBreakerClient) WithFallback(fn func(ctx context.Context, req *http.Request) (*http.Response, error)) *CircuitBreakerClient {
	c.fallback = fn
	return c
}

// Do executes a request through the circuit breaker.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.client.Do(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			c.logger.Warn("circuit breaker rejected request",
				slog.String("breaker", c.name),
				slog.String("url", req.URL.String()),
			)
			if c.fallback != nil {
				return c.fallback(ctx, req)
			}
			return nil, fmt.Errorf("service %s unavailable: %w", c.name, err)
		}
		return nil, err
	}
	return resp, nil
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
