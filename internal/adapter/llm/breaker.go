package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

// CircuitBreakerProvider stops calling a provider that keeps failing. While
// the circuit is open every agent turn fails fast with a retryable
// ErrProviderError, which lets a failover chain move on immediately.
type CircuitBreakerProvider struct {
	inner domain.LLMProvider
	cb    *gobreaker.CircuitBreaker[struct{}]
}

// NewCircuitBreakerProvider guards inner. Zero fields of cfg fall back to
// five failures, a 30s open period and a one minute counting interval.
func NewCircuitBreakerProvider(inner domain.LLMProvider, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerProvider {
	trips := positiveOr(cfg.MaxFailures, 5)
	return &CircuitBreakerProvider{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "llm:" + inner.Name(),
			MaxRequests: 1,
			Interval:    positiveOr(cfg.Interval, time.Minute),
			Timeout:     positiveOr(cfg.Timeout, 30*time.Second),
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= trips
			},
			IsSuccessful: providerHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("llm circuit breaker", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// providerHealthy decides which errors say nothing about the provider's
// health: a bad key, an oversized prompt or a cancelled run.
func providerHealthy(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, domain.ErrAuthInvalid),
		errors.Is(err, domain.ErrContextOverflow),
		errors.Is(err, context.Canceled):
		return true
	}
	return false
}

func (p *CircuitBreakerProvider) Name() string { return p.inner.Name() }

// State reports the breaker state.
func (p *CircuitBreakerProvider) State() gobreaker.State { return p.cb.State() }

func (p *CircuitBreakerProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	var resp *domain.ChatResponse
	err := p.guard(func() (err error) {
		resp, err = p.inner.Chat(ctx, req)
		return err
	})
	return resp, err
}

// ChatStream guards only the opening of the stream. Errors that arrive
// later on the channel are not counted.
func (p *CircuitBreakerProvider) ChatStream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	sp, ok := p.inner.(domain.StreamingLLMProvider)
	if !ok {
		return nil, fmt.Errorf("llm %s: streaming not supported", p.inner.Name())
	}
	var ch <-chan domain.StreamDelta
	err := p.guard(func() (err error) {
		ch, err = sp.ChatStream(ctx, req)
		return err
	})
	return ch, err
}

func (p *CircuitBreakerProvider) guard(call func() error) error {
	_, err := p.cb.Execute(func() (struct{}, error) { return struct{}{}, call() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("llm %s: circuit open: %w: %w", p.inner.Name(), domain.ErrProviderError, err)
	}
	return err
}

// positiveOr returns v, or def when v is not positive.
func positiveOr[T uint32 | int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

var _ domain.StreamingLLMProvider = (*CircuitBreakerProvider)(nil)
