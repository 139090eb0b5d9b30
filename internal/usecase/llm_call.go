package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

// Retry constants for LLM calls.
const (
	maxLLMAttempts = 3
	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 10 * time.Second
)

// retryBackoff computes exponential backoff with 0-25% jitter.
func retryBackoff(attempt int) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<uint(attempt))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay + time.Duration(rand.Int64N(int64(delay/4)+1))
}

// callLLM performs one model turn with retries on retryable errors. In
// stream mode deltas are forwarded to hooks as they arrive; providers
// without streaming support are called synchronously and their full text is
// forwarded as one delta.
func (r *Runner) callLLM(ctx context.Context, agent string, req domain.ChatRequest, stream bool, hooks domain.RunHooks) (domain.Message, domain.Usage, error) {
	var lastErr error
	for attempt := 0; attempt < maxLLMAttempts; attempt++ {
		msg, usage, err := r.callOnce(ctx, agent, req, stream, hooks)
		if err == nil {
			return msg, usage, nil
		}
		lastErr = err

		classified := r.classifier.Classify(err)
		if !classified.Retryable() || attempt == maxLLMAttempts-1 {
			break
		}

		if errors.Is(classified.Sentinel, domain.ErrContextOverflow) {
			shrunk, ok := r.builder.Shrink(req)
			if !ok {
				break
			}
			r.logger.InfoContext(ctx, "context overflow, retrying with shorter history",
				"agent", agent, "messages", len(shrunk.Messages))
			req = shrunk
			continue
		}

		delay := r.backoff(attempt)
		r.logger.InfoContext(ctx, "retrying LLM call after error",
			"agent", agent, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.Message{}, domain.Usage{}, ctx.Err()
		}
	}
	return domain.Message{}, domain.Usage{}, lastErr
}

func (r *Runner) callOnce(ctx context.Context, agent string, req domain.ChatRequest, stream bool, hooks domain.RunHooks) (domain.Message, domain.Usage, error) {
	sp, canStream := r.llm.(domain.StreamingLLMProvider)
	if !stream || !canStream {
		llmCtx, span := tracer.StartSpan(ctx, "crew.llm_call")
		defer span.End()
		resp, err := r.llm.Chat(llmCtx, req)
		if err != nil {
			tracer.RecordError(span, err)
			return domain.Message{}, domain.Usage{}, err
		}
		msg := resp.Message
		if msg.Role == "" {
			msg.Role = domain.RoleAssistant
		}
		if stream && msg.Content != "" {
			hooks.OnDelta(ctx, agent, msg.Content)
		}
		return msg, resp.Usage, nil
	}

	llmCtx, span := tracer.StartSpan(ctx, "crew.llm_stream")
	defer span.End()
	req.Stream = true
	deltas, err := sp.ChatStream(llmCtx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.Message{}, domain.Usage{}, err
	}

	acc := newStreamAccumulator()
	for d := range deltas {
		if d.Err != nil {
			tracer.RecordError(span, d.Err)
			return domain.Message{}, domain.Usage{}, d.Err
		}
		acc.addDelta(d)
		if d.Content != "" {
			hooks.OnDelta(ctx, agent, d.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, domain.Usage{}, err
	}
	msg, usage := acc.build()
	return msg, usage, nil
}
