package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

const (
	defaultSearchCount     = 5
	maxSearchCount         = 20
	defaultSearchCacheTTL  = 15 * time.Minute
	defaultSearchCacheSize = 128
)

var timeRanges = []string{"day", "week", "month", "year"}

// WebSearchTool performs web searches via a pluggable SearchBackend.
// Formatted results are cached per query, count and time range.
type WebSearchTool struct {
	backend SearchBackend
	cache   *expirable.LRU[string, string]
	logger  *slog.Logger
}

// NewWebSearchTool creates a web search tool backed by the given SearchBackend.
func NewWebSearchTool(backend SearchBackend, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *WebSearchTool {
	if cacheTTL <= 0 {
		cacheTTL = defaultSearchCacheTTL
	}
	if cacheSize <= 0 {
		cacheSize = defaultSearchCacheSize
	}
	return &WebSearchTool{
		backend: backend,
		cache:   expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
		logger:  logger,
	}
}

func (t *WebSearchTool) Name() string        { return "web_search" }
func (t *WebSearchTool) Description() string { return "Search the web for up-to-date information" }

func (t *WebSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "The search query"},
				"count": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Number of results (default: 5)"},
				"time_range": {"type": "string", "enum": ["day", "week", "month", "year"], "description": "Time range filter (optional)"}
			},
			"required": ["query"]
		}`),
	}
}

type webSearchParams struct {
	Query     string `json:"query"`
	Count     int    `json:"count,omitempty"`
	TimeRange string `json:"time_range,omitempty"`
}

func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.web_search", t.logger, params,
		func(ctx context.Context, span trace.Span, p webSearchParams) (any, error) {
			if strings.TrimSpace(p.Query) == "" {
				return nil, fmt.Errorf("query must not be empty")
			}
			span.SetAttributes(
				tracer.StringAttr("tool.query", p.Query),
				tracer.StringAttr("tool.backend", t.backend.Name()),
			)

			var bad argProblems
			bad.oneOf("time_range", p.TimeRange, timeRanges)
			if err := bad.err(); err != nil {
				return nil, err
			}
			q := SearchQuery{Text: p.Query, Count: min(max(p.Count, 0), maxSearchCount), TimeRange: p.TimeRange}
			if q.Count == 0 {
				q.Count = defaultSearchCount
			}

			if cached, ok := t.cache.Get(q.cacheKey()); ok {
				t.logger.Debug("web search cache hit", "query", p.Query)
				span.SetAttributes(tracer.StringAttr("tool.cache", "hit"))
				return cached, nil
			}

			results, err := t.backend.Search(ctx, q)
			if err != nil {
				return nil, err
			}
			if len(results) > q.Count {
				results = results[:q.Count]
			}

			content := formatSearchResults(q.Text, results)
			t.cache.Add(q.cacheKey(), content)

			t.logger.Debug("web search completed", "query", p.Query, "results", len(results))
			return content, nil
		},
	)
}

// formatSearchResults renders results as compact text for the model.
func formatSearchResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No search results found for %q.", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n\n", query)
	for i, r := range results {
		if r.URL == "" {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n\n", i+1, r.Title, r.Content)
			continue
		}
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   %s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return sb.String()
}
