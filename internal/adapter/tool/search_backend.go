package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

// SearchQuery is one web_search request after defaults are applied.
type SearchQuery struct {
	Text      string
	Count     int
	TimeRange string // day, week, month, year or empty
}

// cacheKey identifies q in the result cache.
func (q SearchQuery) cacheKey() string {
	return q.Text + "\x00" + strconv.Itoa(q.Count) + "\x00" + q.TimeRange
}

// SearchResult is one hit shown to the Researcher. URL may be empty for a
// synthesized answer.
type SearchResult struct {
	Title   string
	URL     string
	Content string
}

// SearchBackend is the engine behind web_search.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

// NewSearchBackend picks the engine named by cfg.SearchBackend. An empty
// name disables web_search and yields nil, nil.
func NewSearchBackend(cfg config.ToolsConfig, llm domain.LLMProvider, logger *slog.Logger) (SearchBackend, error) {
	switch cfg.SearchBackend {
	case "":
		return nil, nil
	case "openai":
		if llm == nil {
			return nil, fmt.Errorf("search backend openai: no llm provider configured")
		}
		return NewOpenAISearchBackend(llm, cfg.SearchModel, logger), nil
	case "searxng":
		return NewSearXNGBackend(cfg.SearXNGURL, logger), nil
	}
	return nil, fmt.Errorf("search backend %q: want openai, searxng or empty", cfg.SearchBackend)
}
