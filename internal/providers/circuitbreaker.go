package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kidslingo/kidslingo/internal/schema"
)

const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker around a provider.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration
}

// CircuitBreakerProvider fails fast once the wrapped provider has failed
// repeatedly, instead of letting every turn wait out its own timeout.
type CircuitBreakerProvider struct {
	inner   schema.LLMProvider
	breaker *gobreaker.CircuitBreaker[schema.LLMResponse]
}

// NewCircuitBreakerProvider wraps inner. Zero fields in cfg take defaults.
func NewCircuitBreakerProvider(inner schema.LLMProvider, cfg BreakerConfig) *CircuitBreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[schema.LLMResponse](gobreaker.Settings{
		Name:        "llm:" + inner.DefaultModel(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// A caller cancelling its turn says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerProvider{inner: inner, breaker: cb}
}

// Chat implements schema.LLMProvider.
func (p *CircuitBreakerProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	resp, err := p.breaker.Execute(func() (schema.LLMResponse, error) {
		return p.inner.Chat(ctx, messages, tools, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return schema.LLMResponse{}, fmt.Errorf("provider %q circuit open: %w", p.inner.DefaultModel(), err)
		}
		return schema.LLMResponse{}, err
	}
	return resp, nil
}

func (p *CircuitBreakerProvider) DefaultModel() string { return p.inner.DefaultModel() }

// State returns the current breaker state.
func (p *CircuitBreakerProvider) State() gobreaker.State { return p.breaker.State() }

var _ schema.LLMProvider = (*CircuitBreakerProvider)(nil)
