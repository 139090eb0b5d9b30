package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

// WriteFileTool writes text content to a file. Parent directories are not
// created.
type WriteFileTool struct {
	fs     OutputFS
	logger *slog.Logger
}

// NewWriteFileTool creates the write_file tool.
func NewWriteFileTool(fs OutputFS, logger *slog.Logger) *WriteFileTool {
	return &WriteFileTool{fs: fs, logger: logger}
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write text content to a file on the local filesystem"
}

func (t *WriteFileTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"content": {"type": "string"}
			},
			"required": ["path", "content"],
			"additionalProperties": false
		}`),
	}
}

type writeFileParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFileTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.write_file", t.logger, params,
		func(_ context.Context, span trace.Span, p writeFileParams) (any, error) {
			span.SetAttributes(
				tracer.StringAttr("tool.path", p.Path),
				tracer.IntAttr("tool.content_length", len(p.Content)),
			)

			if err := t.fs.WriteFile(p.Path, []byte(p.Content), 0o644); err != nil {
				t.logger.Debug("write_file failed", "path", p.Path, "error", err)
				return domain.ErrorResult("Error writing file: %v", err), nil
			}

			t.logger.Debug("write_file completed", "path", p.Path, "size", len(p.Content))
			return fmt.Sprintf("File written successfully to %s", p.Path), nil
		},
	)
}
