package llm

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
	"content-crew/internal/infra/tracer"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements domain.StreamingLLMProvider over the raw
// chat completions HTTP API.
type OpenAIProvider struct {
	name     string
	model    string
	endpoint chatEndpoint
	logger   *slog.Logger
}

// NewOpenAIProvider creates a provider with configured timeouts.
func NewOpenAIProvider(cfg config.ProviderConfig, logger *slog.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIProvider{
		name:  cfg.Name,
		model: cfg.Model,
		endpoint: chatEndpoint{
			client: NewHTTPClient(cfg),
			url:    baseURL + "/chat/completions",
			apiKey: cfg.APIKey,
		},
		logger: logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *OpenAIProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
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

	var wire wireResponse
	if err := p.endpoint.call(ctx, newWireRequest(req), &wire); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	result := wire.chatResponse()
	chatDone(span, p.logger, p.name, result)
	return result, nil
}

// ChatStream implements domain.StreamingLLMProvider. Usage arrives in a final
// chunk after the finish reason, so the channel stays open until [DONE].
func (p *OpenAIProvider) ChatStream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	req.Stream = true

	oaiReq := newWireRequest(req)
	oaiReq.StreamOptions = &wireStreamOptions{IncludeUsage: true}

	resp, err := p.endpoint.open(ctx, oaiReq, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return streamDeltas(ctx, resp.Body, decodeChunk), nil
}

// Name implements domain.LLMProvider.
func (p *OpenAIProvider) Name() string { return p.name }

var _ domain.StreamingLLMProvider = (*OpenAIProvider)(nil)
