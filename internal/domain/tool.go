package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolSchema is the function definition an agent advertises to the model.
// Parameters holds a JSON Schema object.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is one function call emitted by the model in an assistant turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Args returns the call arguments, substituting an empty object when the
// model sent none.
func (c ToolCall) Args() json.RawMessage {
	return ArgsOrEmpty(c.Arguments)
}

// ArgsOrEmpty maps missing arguments to "{}".
func ArgsOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}

// ToolResult is what a tool hands back to the model. Errors are reported in
// band: IsError marks a failed call and the agent loop keeps going.
type ToolResult struct {
	ToolCallID  string `json:"tool_call_id"`
	Content     string `json:"content"`
	IsError     bool   `json:"is_error"`
	IsRetryable bool   `json:"is_retryable,omitempty"`
}

// TextResult is a successful result carrying content verbatim.
func TextResult(content string) *ToolResult {
	return &ToolResult{Content: content}
}

// ErrorResult is a failed result with a formatted message.
func ErrorResult(format string, args ...any) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

// Retryable marks r as a transient failure and returns it.
func (r *ToolResult) Retryable() *ToolResult {
	r.IsRetryable = true
	return r
}

// Tool is a capability an agent can call: a file writer, an image
// generator, a search backend, or another agent wrapped as a tool.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// Toolbox resolves tools by name and lists what it offers.
type Toolbox interface {
	Get(name string) (Tool, error)
	Schemas() []ToolSchema
}
