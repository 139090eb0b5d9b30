package tool

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"content-crew/internal/domain"
)

const defaultSearchModel = "gpt-4o-search-preview"

// OpenAISearchBackend answers queries with an OpenAI search-preview model.
// The answer becomes the first result; cited links follow as extra results.
type OpenAISearchBackend struct {
	llm    domain.LLMProvider
	model  string
	logger *slog.Logger
}

// NewOpenAISearchBackend creates a search backend on top of llm.
func NewOpenAISearchBackend(llm domain.LLMProvider, model string, logger *slog.Logger) *OpenAISearchBackend {
	if model == "" {
		model = defaultSearchModel
	}
	return &OpenAISearchBackend{llm: llm, model: model, logger: logger}
}

func (b *OpenAISearchBackend) Name() string { return "openai" }

var markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)

func (b *OpenAISearchBackend) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	prompt := q.Text
	if q.TimeRange != "" {
		prompt = fmt.Sprintf("%s (only consider sources from the past %s)", q.Text, q.TimeRange)
	}

	resp, err := b.llm.Chat(ctx, domain.ChatRequest{
		Model: b.model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Search the web and answer concisely. Cite sources as markdown links."},
			{Role: domain.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai search: %w", err)
	}

	answer := strings.TrimSpace(resp.Message.Content)
	if answer == "" {
		return nil, nil
	}

	results := []SearchResult{{Title: "Answer", Content: answer}}
	seen := make(map[string]bool)
	for _, m := range markdownLinkRe.FindAllStringSubmatch(answer, -1) {
		if len(results) >= q.Count {
			break
		}
		if seen[m[2]] {
			continue
		}
		seen[m[2]] = true
		results = append(results, SearchResult{Title: m[1], URL: m[2]})
	}

	b.logger.Debug("openai search completed", "query", q.Text, "results", len(results))
	return results, nil
}
