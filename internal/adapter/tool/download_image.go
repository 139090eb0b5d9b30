package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
	"content-crew/internal/security"
)

const (
	// DefaultImageDir is used when download_image gets a blank directory.
	DefaultImageDir = "./images"

	maxImageBytes = 32 * 1024 * 1024
)

// DownloadImageTool fetches an image URL and saves it to disk.
type DownloadImageTool struct {
	fs      OutputFS
	client  *http.Client
	maxSide int
	logger  *slog.Logger
}

// NewDownloadImageTool creates the download_image tool. client should come
// from security.NewSafeClient. maxSide > 0 shrinks larger images to fit.
func NewDownloadImageTool(fs OutputFS, client *http.Client, maxSide int, logger *slog.Logger) *DownloadImageTool {
	return &DownloadImageTool{fs: fs, client: client, maxSide: maxSide, logger: logger}
}

func (t *DownloadImageTool) Name() string { return "download_image" }
func (t *DownloadImageTool) Description() string {
	return "Download an image from a URL and save it to the local filesystem"
}

func (t *DownloadImageTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"imageUrl": {"type": "string", "description": "The URL of the image to download"},
				"filename": {"type": "string", "description": "The filename to save the image as (e.g., 'post-image.png')"},
				"directory": {"type": "string", "description": "The directory to save the image in. Use './images' as default."}
			},
			"required": ["imageUrl", "filename", "directory"],
			"additionalProperties": false
		}`),
	}
}

type downloadImageParams struct {
	ImageURL  string `json:"imageUrl"`
	Filename  string `json:"filename"`
	Directory string `json:"directory"`
}

func (t *DownloadImageTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.download_image", t.logger, params,
		func(ctx context.Context, span trace.Span, p downloadImageParams) (any, error) {
			dir := orDefault(p.Directory, DefaultImageDir)
			span.SetAttributes(tracer.StringAttr("tool.directory", dir))
			t.logger.Debug("download_image", "url", truncateURL(p.ImageURL), "filename", p.Filename, "directory", dir)

			var bad argProblems
			bad.required("filename", p.Filename)
			if err := bad.err(); err != nil {
				return failure(err), nil
			}
			if err := t.fs.MkdirAll(dir, 0o755); err != nil {
				return failure(err), nil
			}

			data, err := t.fetch(ctx, p.ImageURL)
			if err != nil {
				return failure(err), nil
			}

			width, height := 0, 0
			if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
				bounds := img.Bounds()
				width, height = bounds.Dx(), bounds.Dy()
				if t.maxSide > 0 && (width > t.maxSide || height > t.maxSide) {
					if resized, bounds, err := t.fit(img, p.Filename); err == nil {
						data = resized
						width, height = bounds.Dx(), bounds.Dy()
					} else {
						t.logger.Debug("download_image resize skipped", "error", err)
					}
				}
			}

			filePath := strings.TrimRight(dir, "/") + "/" + p.Filename
			if err := t.fs.WriteFile(filePath, data, 0o644); err != nil {
				return failure(err), nil
			}

			span.SetAttributes(tracer.IntAttr("tool.bytes", len(data)))
			return outcome{
				Success:  true,
				FilePath: filePath,
				Width:    width,
				Height:   height,
				Message:  fmt.Sprintf("Image downloaded and saved to %s", filePath),
			}.result(), nil
		},
	)
}

func (t *DownloadImageTool) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := security.CheckURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Failed to download image: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}

// fit re-encodes img shrunk to maxSide in the format implied by filename,
// PNG when the extension is unknown.
func (t *DownloadImageTool) fit(img image.Image, filename string) ([]byte, image.Rectangle, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.PNG
	}

	resized := imaging.Fit(img, t.maxSide, t.maxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), resized.Bounds(), nil
}

// truncateURL shortens long signed URLs for logging.
func truncateURL(u string) string {
	if len(u) <= 60 {
		return u
	}
	return u[:60] + "..."
}
