package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

// CreatePostTool saves a finished post as markdown, optionally followed by
// an image details section.
type CreatePostTool struct {
	fs     OutputFS
	logger *slog.Logger
}

// NewCreatePostTool creates the create_post_file tool.
func NewCreatePostTool(fs OutputFS, logger *slog.Logger) *CreatePostTool {
	return &CreatePostTool{fs: fs, logger: logger}
}

func (t *CreatePostTool) Name() string { return "create_post_file" }
func (t *CreatePostTool) Description() string {
	return "Create a markdown file with post content and an embedded image reference"
}

func (t *CreatePostTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"postContent": {"type": "string", "description": "The post text content"},
				"imageUrl": {"type": "string", "description": "The URL of the generated image"},
				"imageFilePath": {"type": "string", "description": "Local path to the downloaded image file"},
				"outputPath": {"type": "string", "description": "Path where to save the post file (e.g., ./posts/my-post.md)"}
			},
			"required": ["postContent", "imageUrl", "imageFilePath", "outputPath"],
			"additionalProperties": false
		}`),
	}
}

type createPostParams struct {
	PostContent   string `json:"postContent"`
	ImageURL      string `json:"imageUrl"`
	ImageFilePath string `json:"imageFilePath"`
	OutputPath    string `json:"outputPath"`
}

func (t *CreatePostTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.create_post_file", t.logger, params,
		func(_ context.Context, span trace.Span, p createPostParams) (any, error) {
			hasImage := strings.TrimSpace(p.ImageURL) != "" || strings.TrimSpace(p.ImageFilePath) != ""
			span.SetAttributes(tracer.StringAttr("tool.path", p.OutputPath))
			t.logger.Debug("create_post_file", "output_path", p.OutputPath, "has_image", hasImage)

			var bad argProblems
			bad.required("outputPath", p.OutputPath)
			if err := bad.err(); err != nil {
				return failure(err), nil
			}

			if dir := filepath.Dir(p.OutputPath); dir != "." && dir != "" {
				if err := t.fs.MkdirAll(dir, 0o755); err != nil {
					return failure(err), nil
				}
			}

			if err := t.fs.WriteFile(p.OutputPath, []byte(RenderPost(p.PostContent, p.ImageURL, p.ImageFilePath)), 0o644); err != nil {
				return failure(err), nil
			}

			return outcome{
				Success:  true,
				FilePath: p.OutputPath,
				Message:  fmt.Sprintf("Post saved to %s", p.OutputPath),
			}.result(), nil
		},
	)
}

// RenderPost builds the markdown document written by create_post_file.
// The image details section is added only when an image URL or local path
// is set.
func RenderPost(postContent, imageURL, imageFilePath string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Post\n\n%s\n\n", postContent)

	hasURL := strings.TrimSpace(imageURL) != ""
	hasFile := strings.TrimSpace(imageFilePath) != ""
	if !hasURL && !hasFile {
		return sb.String()
	}

	sb.WriteString("---\n\n## Image Details\n\n")
	if hasFile {
		fmt.Fprintf(&sb, "**Local File:** %s\n\n", imageFilePath)
		fmt.Fprintf(&sb, "![Generated Image](%s)\n\n", imageFilePath)
	}
	if hasURL {
		fmt.Fprintf(&sb, "**Original URL:** %s\n\n", imageURL)
	}
	return sb.String()
}
