package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

const retryHint = " (transient error, may succeed on retry)"

// Handler is the body of a content tool. What it returns decides the result:
// a *domain.ToolResult passes through, a string becomes text content, any
// other value is JSON-encoded, and an error becomes a logged error result.
type Handler[P any] func(ctx context.Context, span trace.Span, params P) (any, error)

// Execute decodes the arguments into P and runs h inside a span named
// spanName. Failures never escape as Go errors; the model always gets a
// result it can read.
func Execute[P any](ctx context.Context, spanName string, logger *slog.Logger, raw json.RawMessage, h Handler[P]) (*domain.ToolResult, error) {
	ctx, span := tracer.StartSpan(ctx, spanName,
		trace.WithAttributes(tracer.StringAttr("tool.name", spanName)),
	)
	defer span.End()

	params, bad := ParseParams[P](raw)
	if bad != nil {
		tracer.RecordError(span, errors.New(bad.Content))
		return bad, nil
	}

	value, err := h(ctx, span, params)
	if err != nil {
		tracer.RecordError(span, err)
		logger.Warn(spanName+" failed", "error", err)
		if transient(err) {
			return domain.ErrorResult("%s", err.Error()+retryHint).Retryable(), nil
		}
		return domain.ErrorResult("%s", err.Error()), nil
	}

	res := toResult(value)
	if res.IsError {
		tracer.RecordError(span, errors.New(res.Content))
	} else {
		tracer.SetOK(span)
	}
	return res, nil
}

func toResult(value any) *domain.ToolResult {
	switch v := value.(type) {
	case *domain.ToolResult:
		return v
	case string:
		return domain.TextResult(v)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return domain.ErrorResult("failed to format response: %v", err)
	}
	return domain.TextResult(string(data))
}

// ParseParams decodes raw into P, treating missing arguments as "{}". The
// second return is a ready-to-send error result when decoding fails.
func ParseParams[P any](raw json.RawMessage) (P, *domain.ToolResult) {
	var p P
	if err := json.Unmarshal(domain.ArgsOrEmpty(raw), &p); err != nil {
		return p, domain.ErrorResult("invalid params: %v", err)
	}
	return p, nil
}

// outcome is the {success, ...} object the file and image tools report.
type outcome struct {
	Success  bool     `json:"success"`
	ID       string   `json:"id,omitempty"`
	Status   string   `json:"status,omitempty"`
	FilePath string   `json:"filePath,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Outputs  []string `json:"outputs,omitempty"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Message  string   `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (o outcome) result() *domain.ToolResult {
	data, err := json.Marshal(o)
	if err != nil {
		return domain.ErrorResult("encode outcome: %v", err)
	}
	res := domain.TextResult(string(data))
	res.IsError = !o.Success
	return res
}

// failure reports err as {success:false, error}.
func failure(err error) *domain.ToolResult {
	res := outcome{Error: err.Error()}.result()
	res.IsRetryable = transient(err)
	return res
}

