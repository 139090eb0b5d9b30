package domain

import "context"

// LLMProvider answers one chat completion. Every agent turn is one Chat
// call; the agent's model is set on the request.
type LLMProvider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// StreamingLLMProvider can also deliver a turn incrementally. The runner
// uses it when the console wants live output and falls back to Chat
// otherwise.
type StreamingLLMProvider interface {
	LLMProvider
	// ChatStream returns a channel that is closed after the delta with
	// Done set, or early on error or cancellation.
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)
}

// StreamDelta is one chunk of a streamed turn. Tool call arguments arrive
// in fragments; ToolIndex is the provider's index of ToolCalls[0] so the
// fragments can be stitched together. Usage comes with the final chunk.
// Err ends a stream that broke before the provider finished.
type StreamDelta struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	ToolIndex int        `json:"tool_index,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
	Done      bool       `json:"done,omitempty"`
	Err       error      `json:"-"`
}
