package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

type countingBackend struct {
	calls   int
	results []SearchResult
	err     error
	last    SearchQuery
}

func (b *countingBackend) Name() string { return "fake" }
func (b *countingBackend) Search(_ context.Context, q SearchQuery) ([]SearchResult, error) {
	b.calls++
	b.last = q
	return b.results, b.err
}

func TestWebSearchCachesResults(t *testing.T) {
	backend := &countingBackend{results: []SearchResult{
		{Title: "Fanvue", URL: "https://fanvue.com", Content: "creator platform"},
	}}
	tl := NewWebSearchTool(backend, 8, time.Minute, nopLogger())

	for i := 0; i < 2; i++ {
		res, err := tl.Execute(context.Background(), json.RawMessage(`{"query":"fanvue ai"}`))
		require.NoError(t, err)
		assert.Contains(t, res.Content, "URL: https://fanvue.com")
	}
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, SearchQuery{Text: "fanvue ai", Count: defaultSearchCount}, backend.last)

	tl.Execute(context.Background(), json.RawMessage(`{"query":"fanvue ai","time_range":"week"}`))
	assert.Equal(t, 2, backend.calls, "different time range is a different cache key")
}

func TestWebSearchErrors(t *testing.T) {
	backend := &countingBackend{err: fmt.Errorf("searxng: %w", domain.ErrRateLimit)}
	tl := NewWebSearchTool(backend, 0, 0, nopLogger())

	res, _ := tl.Execute(context.Background(), json.RawMessage(`{"query":"x"}`))
	assert.True(t, res.IsError)
	assert.True(t, res.IsRetryable)

	res, _ = tl.Execute(context.Background(), json.RawMessage(`{"query":"  "}`))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "query must not be empty")

	res, _ = tl.Execute(context.Background(), json.RawMessage(`{"query":"x","time_range":"decade"}`))
	assert.True(t, res.IsError)
	assert.Equal(t, 1, backend.calls)
}

func TestFormatSearchResults(t *testing.T) {
	assert.Equal(t, `No search results found for "q".`, formatSearchResults("q", nil))

	got := formatSearchResults("q", []SearchResult{{Title: "Answer", Content: "42"}})
	assert.NotContains(t, got, "URL:")
	assert.Contains(t, got, "1. Answer\n   42")
}

func TestSearXNGBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "ai creators", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "month", r.URL.Query().Get("time_range"))
		fmt.Fprint(w, `{"results":[
			{"title":"A","url":"https://a.example","content":"a"},
			{"title":"no url","url":"","content":"skip"},
			{"title":"B","url":"https://b.example","content":"b"},
			{"title":"C","url":"https://c.example","content":"c"}]}`)
	}))
	defer srv.Close()

	b := NewSearXNGBackend(srv.URL+"/", nopLogger())
	results, err := b.Search(context.Background(), SearchQuery{Text: "ai creators", Count: 2, TimeRange: "month"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example", results[0].URL)
	assert.Equal(t, "https://b.example", results[1].URL)
}

func TestSearXNGBackendStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusServiceUnavailable, domain.ErrProviderError},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewSearXNGBackend(srv.URL, nopLogger()).Search(context.Background(), SearchQuery{Text: "q", Count: 5})
		srv.Close()
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

type chatLLM struct {
	req     domain.ChatRequest
	content string
	err     error
}

func (c *chatLLM) Name() string { return "mock" }
func (c *chatLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	c.req = req
	if c.err != nil {
		return nil, c.err
	}
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: c.content}}, nil
}

func TestOpenAISearchBackend(t *testing.T) {
	llm := &chatLLM{content: "Fanvue pays creators weekly [Fanvue Help](https://help.fanvue.com/pay). " +
		"See also [Blog](https://fanvue.com/blog) and [Fanvue Help](https://help.fanvue.com/pay)."}
	b := NewOpenAISearchBackend(llm, "", nopLogger())

	results, err := b.Search(context.Background(), SearchQuery{Text: "fanvue payouts", Count: 5, TimeRange: "week"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Answer", results[0].Title)
	assert.Equal(t, "https://help.fanvue.com/pay", results[1].URL)
	assert.Equal(t, "https://fanvue.com/blog", results[2].URL)

	assert.Equal(t, defaultSearchModel, llm.req.Model)
	assert.True(t, strings.Contains(llm.req.Messages[1].Content, "past week"))
}

func TestOpenAISearchBackendError(t *testing.T) {
	b := NewOpenAISearchBackend(&chatLLM{err: errors.New("boom")}, "gpt-4o-mini-search-preview", nopLogger())
	_, err := b.Search(context.Background(), SearchQuery{Text: "q", Count: 5})
	assert.ErrorContains(t, err, "openai search: boom")
}

func TestNewSearchBackend(t *testing.T) {
	b, err := NewSearchBackend(config.ToolsConfig{}, nil, nopLogger())
	assert.NoError(t, err)
	assert.Nil(t, b)

	b, err = NewSearchBackend(config.ToolsConfig{SearchBackend: "searxng", SearXNGURL: "http://localhost:8888"}, nil, nopLogger())
	require.NoError(t, err)
	assert.Equal(t, "searxng", b.Name())

	_, err = NewSearchBackend(config.ToolsConfig{SearchBackend: "openai"}, nil, nopLogger())
	assert.Error(t, err)

	b, err = NewSearchBackend(config.ToolsConfig{SearchBackend: "openai"}, &chatLLM{}, nopLogger())
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())

	_, err = NewSearchBackend(config.ToolsConfig{SearchBackend: "bing"}, nil, nopLogger())
	assert.Error(t, err)
}

func TestRegisterContentTools(t *testing.T) {
	reg := NewRegistry(nopLogger())
	err := RegisterContentTools(reg, config.ToolsConfig{RateLimitPerMin: 10}, Deps{
		FS:     newMemFS(),
		HTTP:   http.DefaultClient,
		Images: &fakeImageAPI{},
		Search: &countingBackend{},
		Logger: nopLogger(),
	})
	require.NoError(t, err)

	var names []string
	for _, s := range reg.Schemas() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"create_post_file", "download_image", "edit_image", "generate_image", "web_search", "write_file"}, names)

	tl, err := reg.Get("create_post_file")
	require.NoError(t, err)
	res, _ := tl.Execute(context.Background(), json.RawMessage(`{"postContent":"x"}`))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "arguments rejected")
}
