package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/adapter/wavespeed"
	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

// GenerateImageTool submits a text-to-image job and waits for its result.
type GenerateImageTool struct {
	api    ImageAPI
	logger *slog.Logger
}

// NewGenerateImageTool creates the generate_image tool.
func NewGenerateImageTool(api ImageAPI, logger *slog.Logger) *GenerateImageTool {
	return &GenerateImageTool{api: api, logger: logger}
}

func (t *GenerateImageTool) Name() string { return "generate_image" }
func (t *GenerateImageTool) Description() string {
	return "Generate an image from a text prompt with the WaveSpeed nano-banana-pro model and return its URL"
}

func (t *GenerateImageTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {"type": "string", "description": "Detailed description of the image"},
				"size": {"type": "string", "description": "Image size as WIDTHxHEIGHT, e.g. 1024x1024"},
				"aspect_ratio": {"type": "string", "enum": ["1:1", "3:2", "2:3", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"]},
				"resolution": {"type": "string", "enum": ["1k", "2k", "4k"]}
			},
			"required": ["prompt"],
			"additionalProperties": false
		}`),
	}
}

type generateImageParams struct {
	Prompt      string `json:"prompt"`
	Size        string `json:"size,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

func (t *GenerateImageTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.generate_image", t.logger, params,
		func(ctx context.Context, span trace.Span, p generateImageParams) (any, error) {
			if !t.api.HasKey() {
				return failure(errNoImageKey), nil
			}
			var bad argProblems
			bad.required("prompt", p.Prompt)
			bad.oneOf("resolution", p.Resolution, resolutions)
			bad.oneOf("aspect_ratio", p.AspectRatio, aspectRatios)
			if err := bad.err(); err != nil {
				return failure(err), nil
			}

			aspect := p.AspectRatio
			if aspect == "" && p.Size != "" {
				derived, err := aspectFromSize(p.Size)
				if err != nil {
					return failure(err), nil
				}
				aspect = derived
			}

			job, err := t.api.TextToImage(ctx, wavespeed.TextToImageRequest{
				AspectRatio:  orDefault(aspect, defaultAspectRatio),
				OutputFormat: outputFormatPNG,
				Prompt:       p.Prompt,
				Resolution:   orDefault(p.Resolution, defaultResolution),
			})
			if err != nil {
				return failure(err), nil
			}
			span.SetAttributes(tracer.StringAttr("tool.job_id", job.ID))

			pred, err := t.api.Wait(ctx, job.ID)
			if err != nil {
				res := outcome{ID: job.ID, Error: err.Error()}
				if pred != nil {
					res.Status = pred.Status
					if pred.Error != "" {
						res.Error = pred.Error
					}
				}
				out := res.result()
				out.IsRetryable = transient(err)
				return out, nil
			}

			res := outcome{
				Success: true,
				ID:      pred.ID,
				Status:  pred.Status,
				Outputs: pred.Outputs,
			}
			if len(pred.Outputs) > 0 {
				res.ImageURL = pred.Outputs[0]
			}
			t.logger.Debug("generate_image completed", "id", pred.ID, "outputs", len(pred.Outputs))
			return res.result(), nil
		},
	)
}
