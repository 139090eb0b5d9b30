package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonschema"
	"golang.org/x/time/rate"

	"content-crew/internal/domain"
)

// Guards wrap a domain.Tool and answer with an error result instead of
// calling it when the arguments or the call rate are unacceptable. The
// model sees the rejection and can correct itself on the next turn.

// checkedTool rejects arguments that do not satisfy the tool's parameter
// schema.
type checkedTool struct {
	domain.Tool
	schema *jsonschema.Schema
}

// WithSchemaValidation compiles t's parameter schema and guards t with it.
// Tools without a schema are returned unchanged.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile %s parameters: %w", t.Name(), err)
	}
	return &checkedTool{Tool: t, schema: compiled}, nil
}

func (c *checkedTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	params = domain.ArgsOrEmpty(params)

	var doc any
	if err := json.Unmarshal(params, &doc); err != nil {
		return domain.ErrorResult("%s: arguments are not valid JSON: %v", c.Name(), err), nil
	}
	if res := c.schema.Validate(doc); !res.IsValid() {
		return domain.ErrorResult("%s: arguments rejected: %s", c.Name(), res.Error()), nil
	}
	return c.Tool.Execute(ctx, params)
}

// throttledTool refuses calls beyond its token bucket. Image generation is
// billed per call, so the bucket never blocks; it fails fast instead.
type throttledTool struct {
	domain.Tool
	bucket *rate.Limiter
}

// WithRateLimit lets perMinute calls through per minute, bursting up to
// perMinute. Non-positive values disable the guard.
func WithRateLimit(t domain.Tool, perMinute int) domain.Tool {
	if perMinute <= 0 {
		return t
	}
	every := rate.Every(time.Minute / time.Duration(perMinute))
	return &throttledTool{Tool: t, bucket: rate.NewLimiter(every, perMinute)}
}

func (l *throttledTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if !l.bucket.Allow() {
		return domain.ErrorResult("%s: %v, try again later", l.Name(), domain.ErrRateLimit).Retryable(), nil
	}
	return l.Tool.Execute(ctx, params)
}
