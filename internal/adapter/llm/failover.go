package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"content-crew/internal/domain"
)

var (
	_ domain.LLMProvider          = (*FailoverProvider)(nil)
	_ domain.StreamingLLMProvider = (*FailoverProvider)(nil)
)

var errNoStreamingProvider = errors.New("no streaming-capable providers available")

// FailoverProvider asks the default provider first and the configured
// fallbacks after it, in order. Cancellation ends the walk.
type FailoverProvider struct {
	chain  []domain.LLMProvider
	logger *slog.Logger
}

func NewFailoverProvider(primary domain.LLMProvider, fallbacks []domain.LLMProvider, logger *slog.Logger) *FailoverProvider {
	return &FailoverProvider{
		chain:  append([]domain.LLMProvider{primary}, fallbacks...),
		logger: logger,
	}
}

// Name is the primary's name with a "+failover" suffix.
func (f *FailoverProvider) Name() string { return f.chain[0].Name() + "+failover" }

func (f *FailoverProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return walk(ctx, f, "providers", func(p domain.LLMProvider) (*domain.ChatResponse, bool, error) {
		resp, err := p.Chat(ctx, req)
		return resp, true, err
	})
}

// ChatStream skips providers that cannot stream.
func (f *FailoverProvider) ChatStream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	return walk(ctx, f, "streaming providers", func(p domain.LLMProvider) (<-chan domain.StreamDelta, bool, error) {
		sp, ok := p.(domain.StreamingLLMProvider)
		if !ok {
			return nil, false, nil
		}
		ch, err := sp.ChatStream(ctx, req)
		return ch, true, err
	})
}

// walk calls try on each provider until one succeeds. try reports false when
// it skipped the provider. The joined error keeps the last failure wrapped so
// callers can still match its sentinel.
func walk[T any](ctx context.Context, f *FailoverProvider, what string, try func(domain.LLMProvider) (T, bool, error)) (T, error) {
	var (
		zero     T
		failures []string
		lastErr  error
	)
	for i, p := range f.chain {
		out, tried, err := try(p)
		if !tried {
			continue
		}
		if err == nil {
			if i > 0 {
				f.logger.InfoContext(ctx, "failover succeeded", "provider", p.Name())
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		f.logger.WarnContext(ctx, "llm provider failed", "provider", p.Name(), "error", err)
		failures = append(failures, p.Name()+": "+err.Error())
		lastErr = err
	}
	if lastErr == nil {
		return zero, errNoStreamingProvider
	}
	return zero, fmt.Errorf("all %s failed: [%s]: %w", what, strings.Join(failures, "; "), lastErr)
}
