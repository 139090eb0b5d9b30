package domain

import "time"

// Chat roles as the OpenAI chat API names them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a session transcript. Assistant messages may carry
// ToolCalls; each is answered by a tool message whose ToolCallID matches.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Agent      string     `json:"agent,omitempty"`     // assistant messages: which agent spoke
	ToolName   string     `json:"tool_name,omitempty"` // tool messages
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// AnswersCall reports whether m is the tool result for call id.
func (m Message) AnswersCall(id string) bool {
	return m.Role == RoleTool && id != "" && m.ToolCallID == id
}

// ChatRequest is one model call: the agent's instructions and history plus
// the schemas of the tools it may call.
type ChatRequest struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Tools       []ToolSchema `json:"tools,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Store       bool         `json:"store,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

// ChatResponse is the assistant turn the model produced.
type ChatResponse struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Message   Message   `json:"message"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// Usage counts tokens for one call or, summed with Add, for a whole run.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
