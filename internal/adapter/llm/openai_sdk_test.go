package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

func newSDKTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAISDKProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAISDKProvider(config.ProviderConfig{
		Name:    "sdk",
		BaseURL: server.URL + "/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4.1",
	}, newTestLogger())
}

func TestOpenAISDKProviderChatToolCalls(t *testing.T) {
	var got map[string]any
	p := newSDKTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-4.1",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"researcher_agent","arguments":"{\"input\":\"fanvue\"}"}}]}}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	})

	temp := 1.0
	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "concept"}},
		Tools:       []domain.ToolSchema{{Name: "researcher_agent", Description: "d", Parameters: json.RawMessage(`{"type":"object","properties":{"input":{"type":"string"}}}`)}},
		Temperature: &temp,
		Store:       true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "researcher_agent", resp.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"input":"fanvue"}`, string(resp.Message.ToolCalls[0].Arguments))
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4.1", got["model"])
	assert.Equal(t, true, got["store"])
	assert.Equal(t, 1.0, got["temperature"])
	tools, _ := got["tools"].([]any)
	assert.Len(t, tools, 1)
}

func TestOpenAISDKProviderMapsHTTPErrors(t *testing.T) {
	p := newSDKTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	})

	_, err := p.Chat(context.Background(), domain.ChatRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimit), "got %v", err)
}

func TestOpenAISDKProviderStream(t *testing.T) {
	p := newSDKTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, c := range []string{
			`{"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hi"}}]}`,
			`{"id":"c","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"write_file","arguments":"{\"path\""}}]}}]}`,
			`{"id":"c","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := p.ChatStream(context.Background(), domain.ChatRequest{})
	require.NoError(t, err)

	var content string
	var calls []domain.ToolCall
	var usage *domain.Usage
	var done bool
	for d := range ch {
		content += d.Content
		calls = append(calls, d.ToolCalls...)
		if d.Usage != nil {
			usage = d.Usage
		}
		done = done || d.Done
	}

	assert.Equal(t, "Hi", content)
	require.Len(t, calls, 1)
	assert.Equal(t, "write_file", calls[0].Name)
	require.NotNil(t, usage)
	assert.Equal(t, 2, usage.TotalTokens)
	assert.True(t, done)
}

func TestToSDKRequestToolResult(t *testing.T) {
	req := toSDKRequest(domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleTool, ToolName: "write_file", Content: "ok", ToolCallID: "call_9"},
		},
	})
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "call_9", req.Messages[0].ToolCallID)
	assert.Empty(t, req.Messages[0].ToolCalls)
	assert.Zero(t, req.Temperature)
}
