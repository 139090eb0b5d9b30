package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
	"content-crew/internal/infra/tracer"
)

// OpenAISDKProvider implements domain.StreamingLLMProvider on top of the
// go-openai client. Selected with provider type "openai_sdk".
type OpenAISDKProvider struct {
	name   string
	model  string
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAISDKProvider creates a provider backed by go-openai, sharing the
// pooled HTTP transport used by the raw provider.
func NewOpenAISDKProvider(cfg config.ProviderConfig, logger *slog.Logger) *OpenAISDKProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.BaseURL = base
	}
	clientCfg.HTTPClient = NewHTTPClient(cfg)

	return &OpenAISDKProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *OpenAISDKProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}

	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", req.Model),
		),
	)
	defer span.End()

	resp, err := p.client.CreateChatCompletion(ctx, toSDKRequest(req))
	if err != nil {
		err = mapSDKError(err)
		tracer.RecordError(span, err)
		return nil, err
	}

	result := fromSDKResponse(resp)
	chatDone(span, p.logger, p.name, result)

	return result, nil
}

// ChatStream implements domain.StreamingLLMProvider.
func (p *OpenAISDKProvider) ChatStream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	if req.Model == "" {
		req.Model = p.model
	}

	sdkReq := toSDKRequest(req)
	sdkReq.Stream = true
	sdkReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := p.client.CreateChatCompletionStream(ctx, sdkReq)
	if err != nil {
		return nil, mapSDKError(err)
	}

	ch := make(chan domain.StreamDelta, 16)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if err != nil {
				final := domain.StreamDelta{Done: true}
				if !errors.Is(err, io.EOF) {
					p.logger.Warn("llm stream interrupted", "provider", p.name, "error", err)
					final = domain.StreamDelta{Err: fmt.Errorf("read stream: %w: %w", domain.ErrProviderError, mapSDKError(err))}
				}
				select {
				case ch <- final:
				case <-ctx.Done():
				}
				return
			}

			select {
			case ch <- fromSDKChunk(chunk):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Name implements domain.LLMProvider.
func (p *OpenAISDKProvider) Name() string { return p.name }

func toSDKRequest(req domain.ChatRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if len(m.ToolCalls) > 0 {
			msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				msg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}
		msgs = append(msgs, msg)
	}

	sdkReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
		Store:     req.Store,
	}
	if req.Temperature != nil {
		sdkReq.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		sdkReq.TopP = float32(*req.TopP)
	}

	for _, t := range req.Tools {
		sdkReq.Tools = append(sdkReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return sdkReq
}

func fromSDKResponse(resp openai.ChatCompletionResponse) *domain.ChatResponse {
	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: time.Unix(resp.Created, 0),
	}
	if len(resp.Choices) == 0 {
		result.Message = domain.Message{Role: domain.RoleAssistant, Timestamp: result.CreatedAt}
		return result
	}

	m := resp.Choices[0].Message
	msg := domain.Message{
		Role:      domain.RoleAssistant,
		Content:   m.Content,
		Timestamp: result.CreatedAt,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	result.Message = msg
	return result
}

func fromSDKChunk(chunk openai.ChatCompletionStreamResponse) domain.StreamDelta {
	var delta domain.StreamDelta
	if len(chunk.Choices) > 0 {
		d := chunk.Choices[0].Delta
		delta.Content = d.Content
		for i, tc := range d.ToolCalls {
			if i == 0 && tc.Index != nil {
				delta.ToolIndex = *tc.Index
			}
			delta.ToolCalls = append(delta.ToolCalls, domain.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	}
	if chunk.Usage != nil {
		delta.Usage = &domain.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	return delta
}

// mapSDKError converts go-openai errors to the same domain errors the raw
// provider produces.
func mapSDKError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return statusError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusError(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return fmt.Errorf("openai sdk: %w", err)
}

var _ domain.StreamingLLMProvider = (*OpenAISDKProvider)(nil)
