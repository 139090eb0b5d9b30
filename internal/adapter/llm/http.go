package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

const (
	maxResponseBody = 10 << 20
	maxErrorBody    = 4 << 10
)

// chatEndpoint is the /chat/completions URL of one provider.
type chatEndpoint struct {
	client *http.Client
	url    string
	apiKey string
}

// call posts payload and decodes a 200 reply into out.
func (e chatEndpoint) call(ctx context.Context, payload, out any) error {
	resp, err := e.open(ctx, payload, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// open posts payload and returns the response once the status is 200. The
// caller owns the body.
func (e chatEndpoint) open(ctx context.Context, payload any, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(resp.StatusCode, string(detail))
	}
	return resp, nil
}

// statusError turns a failed reply into a domain sentinel the retry
// classifier, the breaker and failover understand.
func statusError(code int, detail string) error {
	msg := fmt.Sprintf("API error %d: %s", code, detail)
	var sentinel error
	switch {
	case code == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimit
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		sentinel = domain.ErrAuthInvalid
	case code == http.StatusRequestEntityTooLarge:
		sentinel = domain.ErrContextOverflow
	case code >= http.StatusInternalServerError:
		sentinel = domain.ErrProviderError
	default:
		return errors.New(msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// chatDone records a finished non-streaming turn on the span and the log.
func chatDone(span trace.Span, logger *slog.Logger, provider string, resp *domain.ChatResponse) {
	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", resp.Usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	tracer.SetOK(span)
	logger.Debug("llm chat completed",
		"provider", provider,
		"model", resp.Model,
		"tool_calls", len(resp.Message.ToolCalls),
		"tokens", resp.Usage.TotalTokens,
	)
}
