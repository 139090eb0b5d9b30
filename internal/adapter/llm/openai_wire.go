package llm

import (
	"encoding/json"
	"time"

	"content-crew/internal/domain"
)

// Chat completions wire format, the subset the crew sends and reads.

type wireRequest struct {
	Model         string             `json:"model"`
	Messages      []wireMessage      `json:"messages"`
	Tools         []wireTool         `json:"tools,omitempty"`
	MaxTokens     int                `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	Store         bool               `json:"store,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
	StreamOptions *wireStreamOptions `json:"stream_options,omitempty"`
}

type wireStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Arguments   *string         `json:"arguments,omitempty"`
}

// wireToolCall is a call in a reply, or a fragment of one in a stream chunk
// where Index says which call the fragment extends.
type wireToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function wireFunction `json:"function"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage wireUsage `json:"usage"`
}

type wireChunk struct {
	Choices []struct {
		Delta wireMessage `json:"delta"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage,omitempty"`
}

func (u wireUsage) usage() domain.Usage {
	return domain.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func (c wireToolCall) toolCall() domain.ToolCall {
	tc := domain.ToolCall{ID: c.ID, Name: c.Function.Name}
	if c.Function.Arguments != nil {
		tc.Arguments = json.RawMessage(*c.Function.Arguments)
	}
	return tc
}

func toolCalls(wire []wireToolCall) []domain.ToolCall {
	if len(wire) == 0 {
		return nil
	}
	out := make([]domain.ToolCall, len(wire))
	for i, c := range wire {
		out[i] = c.toolCall()
	}
	return out
}

func newWireRequest(req domain.ChatRequest) wireRequest {
	out := wireRequest{
		Model:       req.Model,
		Messages:    make([]wireMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Store:       req.Store,
		Stream:      req.Stream,
	}
	for i, m := range req.Messages {
		wm := wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			args := string(tc.Arguments)
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunction{Name: tc.Name, Arguments: &args},
			})
		}
		out.Messages[i] = wm
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type:     "function",
			Function: wireFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	return out
}

// chatResponse reads the first choice. Providers that omit the role get
// assistant.
func (r wireResponse) chatResponse() *domain.ChatResponse {
	out := &domain.ChatResponse{
		ID:        r.ID,
		Model:     r.Model,
		Usage:     r.Usage.usage(),
		CreatedAt: time.Unix(r.Created, 0),
	}
	if len(r.Choices) == 0 {
		return out
	}
	m := r.Choices[0].Message
	out.Message = domain.Message{
		Role:      m.Role,
		Content:   m.Content,
		ToolCalls: toolCalls(m.ToolCalls),
		Timestamp: out.CreatedAt,
	}
	if out.Message.Role == "" {
		out.Message.Role = domain.RoleAssistant
	}
	return out
}

// decodeChunk turns one SSE payload into a delta. The usage-only chunk that
// closes an include_usage stream has no choices.
func decodeChunk(data []byte) (*domain.StreamDelta, error) {
	var chunk wireChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}
	d := &domain.StreamDelta{}
	if len(chunk.Choices) > 0 {
		delta := chunk.Choices[0].Delta
		d.Content = delta.Content
		d.ToolCalls = toolCalls(delta.ToolCalls)
		if len(delta.ToolCalls) > 0 && delta.ToolCalls[0].Index != nil {
			d.ToolIndex = *delta.ToolCalls[0].Index
		}
	}
	if chunk.Usage != nil {
		u := chunk.Usage.usage()
		d.Usage = &u
	}
	return d, nil
}
