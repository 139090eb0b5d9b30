package domain

import (
	"context"
	"time"
)

// RunResult is the outcome of one orchestrated run.
type RunResult struct {
	RunID       string    `json:"run_id"`
	FinalOutput string    `json:"final_output"`
	LastAgent   string    `json:"last_agent"`
	Turns       int       `json:"turns"`
	Usage       Usage     `json:"usage"`
	Messages    []Message `json:"-"`
}

// RunHooks observes a run. Hooks are called synchronously from the run's
// goroutines; tool hooks may be called concurrently for one turn.
type RunHooks interface {
	OnAgentStart(ctx context.Context, agent, input string)
	OnAgentEnd(ctx context.Context, agent, output string)
	OnToolCall(ctx context.Context, agent string, call ToolCall)
	OnToolResult(ctx context.Context, agent string, call ToolCall, result ToolResult)
	OnHandoff(ctx context.Context, from, to string)
	// OnDelta receives streamed model text. Only called by streaming runs.
	OnDelta(ctx context.Context, agent, content string)
}

// NopHooks ignores every event. Embed it to implement a subset of RunHooks.
type NopHooks struct{}

func (NopHooks) OnAgentStart(context.Context, string, string) {}
func (NopHooks) OnAgentEnd(context.Context, string, string) {}
func (NopHooks) OnToolCall(context.Context, string, ToolCall) {}
func (NopHooks) OnToolResult(context.Context, string, ToolCall, ToolResult) {}
func (NopHooks) OnHandoff(context.Context, string, string) {}
func (NopHooks) OnDelta(context.Context, string, string) {}

// MultiHooks fans every event out to each hook in order.
type MultiHooks []RunHooks

func (m MultiHooks) OnAgentStart(ctx context.Context, agent, input string) {
	for _, h := range m {
		h.OnAgentStart(ctx, agent, input)
	}
}

func (m MultiHooks) OnAgentEnd(ctx context.Context, agent, output string) {
	for _, h := range m {
		h.OnAgentEnd(ctx, agent, output)
	}
}

func (m MultiHooks) OnToolCall(ctx context.Context, agent string, call ToolCall) {
	for _, h := range m {
		h.OnToolCall(ctx, agent, call)
	}
}

func (m MultiHooks) OnToolResult(ctx context.Context, agent string, call ToolCall, result ToolResult) {
	for _, h := range m {
		h.OnToolResult(ctx, agent, call, result)
	}
}

func (m MultiHooks) OnHandoff(ctx context.Context, from, to string) {
	for _, h := range m {
		h.OnHandoff(ctx, from, to)
	}
}

func (m MultiHooks) OnDelta(ctx context.Context, agent, content string) {
	for _, h := range m {
		h.OnDelta(ctx, agent, content)
	}
}

// Run status values stored in RunRecord.Status.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is the persisted summary of a run.
type RunRecord struct {
	ID          string    `json:"id"`
	StartAgent  string    `json:"start_agent"`
	LastAgent   string    `json:"last_agent"`
	Input       string    `json:"input"`
	FinalOutput string    `json:"final_output"`
	Status      string    `json:"status"`
	ErrorCode   ErrorCode `json:"error_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	Turns       int       `json:"turns"`
	TotalTokens int       `json:"total_tokens"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// RunStore persists run records.
type RunStore interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
