package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"content-crew/internal/domain"
)

// SubAgentConfig bounds nested agent-as-tool runs.
type SubAgentConfig struct {
	MaxConcurrent int
	MaxTurns      int
	Timeout       time.Duration
}

// subAgentPool runs nested agents with a concurrency limit and a per-run
// timeout.
type subAgentPool struct {
	config    SubAgentConfig
	logger    *slog.Logger
	semaphore chan struct{}
}

func newSubAgentPool(cfg SubAgentConfig, logger *slog.Logger) *subAgentPool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &subAgentPool{
		config:    cfg,
		logger:    logger,
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// inSlotKey marks a context whose run already holds a pool slot.
type inSlotKey struct{}

// Spawn runs fn in a slot of the pool. The slot wait and fn share the
// timeout. Agents called from inside a sub-agent run in their caller's slot,
// so MaxConcurrent bounds top-level fan-out and a chain of any depth cannot
// wait on itself.
func (p *subAgentPool) Spawn(ctx context.Context, agent string, fn func(ctx context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if ctx.Value(inSlotKey{}) == nil {
		select {
		case p.semaphore <- struct{}{}:
			defer func() { <-p.semaphore }()
		case <-ctx.Done():
			return "", domain.NewSubSystemError("subagent", "SubAgent.Spawn", domain.ErrLimitReached,
				fmt.Sprintf("no free slot for %s", agent))
		}
		ctx = context.WithValue(ctx, inSlotKey{}, true)
	}

	start := time.Now()
	out, err := fn(ctx)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return "", domain.NewSubSystemError("subagent", "SubAgent.Spawn", domain.ErrTimeout,
			fmt.Sprintf("%s did not finish within %s", agent, p.config.Timeout))
	}
	p.logger.DebugContext(ctx, "sub-agent finished", "agent", agent, "duration", time.Since(start), "error", err)
	return out, err
}

// agentTool exposes an agent as a function tool taking {input}.
type agentTool struct {
	spec   domain.AgentSpec
	runner *Runner
	hooks  domain.RunHooks
}

func newAgentTool(spec domain.AgentSpec, runner *Runner, hooks domain.RunHooks) *agentTool {
	return &agentTool{spec: spec, runner: runner, hooks: hooks}
}

func (a *agentTool) Name() string { return domain.ToolName(a.spec.Name) }

func (a *agentTool) Description() string {
	if a.spec.HandoffDescription != "" {
		return a.spec.HandoffDescription
	}
	return fmt.Sprintf("Ask the %s to work on the given input and return its answer.", a.spec.Name)
}

func (a *agentTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        a.Name(),
		Description: a.Description(),
		Parameters: json.RawMessage(`{"type":"object","properties":{"input":{"type":"string","description":"The task for the agent"}},` +
			`"required":["input"],"additionalProperties":false}`),
	}
}

// Execute runs the agent in a fresh session. Failures become error results
// so the calling agent can react to them.
func (a *agentTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	var p struct {
		Input string `json:"input"`
	}
	if err := json.Unmarshal(domain.ArgsOrEmpty(params), &p); err != nil {
		return domain.ErrorResult("invalid params: %v", err), nil
	}

	out, err := a.runner.subagents.Spawn(ctx, a.spec.Name, func(ctx context.Context) (string, error) {
		res, err := a.runner.runNested(ctx, a.spec, p.Input, a.hooks)
		if err != nil {
			return "", err
		}
		return res.FinalOutput, nil
	})
	if err != nil {
		res := domain.ErrorResult("%s failed: %v", a.spec.Name, err)
		res.IsRetryable = domain.IsRetryableError(err)
		return res, nil
	}
	return domain.TextResult(out), nil
}
