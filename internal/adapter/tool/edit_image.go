package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/adapter/wavespeed"
	"content-crew/internal/domain"
)

// EditImageTool submits an image edit job and returns the API response as is.
type EditImageTool struct {
	api    ImageAPI
	logger *slog.Logger
}

// NewEditImageTool creates the edit_image tool.
func NewEditImageTool(api ImageAPI, logger *slog.Logger) *EditImageTool {
	return &EditImageTool{api: api, logger: logger}
}

func (t *EditImageTool) Name() string        { return "edit_image" }
func (t *EditImageTool) Description() string { return "Call WaveSpeed API to edit/generate images" }

func (t *EditImageTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {"type": "string"},
				"imageUrl": {"type": "string"},
				"resolution": {"type": "string", "enum": ["1k", "2k", "4k"]}
			},
			"required": ["prompt", "imageUrl"],
			"additionalProperties": false
		}`),
	}
}

type editImageParams struct {
	Prompt     string `json:"prompt"`
	ImageURL   string `json:"imageUrl"`
	Resolution string `json:"resolution,omitempty"`
}

type editError struct {
	Error string `json:"error"`
}

func (t *EditImageTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.edit_image", t.logger, params,
		func(ctx context.Context, _ trace.Span, p editImageParams) (any, error) {
			if !t.api.HasKey() {
				return editFailure(errNoImageKey.Error()), nil
			}

			body, err := t.api.Edit(ctx, wavespeed.EditRequest{
				Images:       []string{p.ImageURL},
				OutputFormat: outputFormatPNG,
				Prompt:       p.Prompt,
				Resolution:   orDefault(p.Resolution, defaultResolution),
			})
			if err != nil {
				var se *wavespeed.StatusError
				if errors.As(err, &se) {
					return editFailure(se.Error()), nil
				}
				return nil, err
			}
			return domain.TextResult(string(body)), nil
		},
	)
}

func editFailure(msg string) *domain.ToolResult {
	data, _ := json.Marshal(editError{Error: msg})
	res := domain.TextResult(string(data))
	res.IsError = true
	return res
}
