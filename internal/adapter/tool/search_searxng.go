package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"content-crew/internal/domain"
)

const (
	searxngTimeout     = 15 * time.Second
	maxSearxngBodySize = 512 << 10
)

// SearXNGBackend queries a self-hosted SearXNG instance through its JSON
// API. The instance must have the json format enabled.
type SearXNGBackend struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewSearXNGBackend targets the instance at baseURL.
func NewSearXNGBackend(baseURL string, logger *slog.Logger) *SearXNGBackend {
	return &SearXNGBackend{
		endpoint: strings.TrimRight(baseURL, "/") + "/search",
		client:   &http.Client{Timeout: searxngTimeout},
		logger:   logger,
	}
}

func (b *SearXNGBackend) Name() string { return "searxng" }

func (b *SearXNGBackend) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	form := url.Values{"q": {q.Text}, "format": {"json"}, "pageno": {"1"}}
	if q.TimeRange != "" {
		form.Set("time_range", q.TimeRange)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+form.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	defer resp.Body.Close()

	if err := searxngStatus(resp); err != nil {
		return nil, err
	}

	var page struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSearxngBodySize)).Decode(&page); err != nil {
		return nil, fmt.Errorf("searxng: decode results: %w", err)
	}

	hits := make([]SearchResult, 0, q.Count)
	for _, r := range page.Results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, SearchResult{Title: r.Title, URL: r.URL, Content: r.Content})
		if len(hits) == q.Count {
			break
		}
	}
	b.logger.Debug("searxng answered", "query", q.Text, "hits", len(hits))
	return hits, nil
}

// searxngStatus maps non-200 replies onto the domain sentinels the retry
// classifier understands.
func searxngStatus(resp *http.Response) error {
	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("searxng: %w", domain.ErrRateLimit)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("searxng: HTTP %d: %w", code, domain.ErrProviderError)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("searxng: HTTP %d: %s", code, strings.TrimSpace(string(snippet)))
	}
}
