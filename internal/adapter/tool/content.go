package tool

import (
	"fmt"
	"log/slog"
	"net/http"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

// Deps carries the collaborators of the content tools.
type Deps struct {
	FS     OutputFS
	HTTP   *http.Client // image downloads
	Images ImageAPI
	Search SearchBackend // nil disables web_search
	Logger *slog.Logger
}

// RegisterContentTools registers write_file, download_image,
// create_post_file, generate_image, edit_image and, when a search backend
// is set, web_search. Image tools are rate limited per cfg.
func RegisterContentTools(reg *Registry, cfg config.ToolsConfig, deps Deps) error {
	tools := []domain.Tool{
		NewWriteFileTool(deps.FS, deps.Logger),
		NewCreatePostTool(deps.FS, deps.Logger),
		NewDownloadImageTool(deps.FS, deps.HTTP, cfg.ImageMaxSide, deps.Logger),
		WithRateLimit(NewGenerateImageTool(deps.Images, deps.Logger), cfg.RateLimitPerMin),
		WithRateLimit(NewEditImageTool(deps.Images, deps.Logger), cfg.RateLimitPerMin),
	}
	if deps.Search != nil {
		tools = append(tools, NewWebSearchTool(deps.Search, cfg.SearchCacheSize, cfg.SearchCacheTTL, deps.Logger))
	}

	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("register %s: %w", t.Name(), err)
		}
	}
	return nil
}
