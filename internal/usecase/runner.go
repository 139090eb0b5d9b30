package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"content-crew/internal/domain"
	"content-crew/internal/infra/tracer"
)

// RunnerDeps holds injected dependencies for the runner.
type RunnerDeps struct {
	LLM             domain.LLMProvider
	Tools           domain.Toolbox
	Agents          domain.AgentLookup
	Logger          *slog.Logger
	Hooks           domain.RunHooks  // optional, nil = no hooks
	Store           domain.RunStore  // optional, nil = runs are not recorded
	MaxTurns        int
	ContextMessages int               // history budget per request, 0 = unlimited
	Models          map[string]string // agent name → model override
	SubAgent        SubAgentConfig
	TraceMetadata   map[string]string
	// Backoff overrides the retry delay between LLM attempts.
	Backoff func(attempt int) time.Duration
}

// Runner drives agents through the tool-calling loop.
type Runner struct {
	llm        domain.LLMProvider
	tools      domain.Toolbox
	agents     domain.AgentLookup
	hooks      domain.RunHooks
	store      domain.RunStore
	logger     *slog.Logger
	maxTurns   int
	builder    *ContextBuilder
	classifier *ErrorClassifier
	subagents  *subAgentPool
	traceMeta  map[string]string
	backoff    func(int) time.Duration
}

// NewRunner creates a runner with the given dependencies.
func NewRunner(deps RunnerDeps) *Runner {
	if deps.MaxTurns <= 0 {
		deps.MaxTurns = 10
	}
	if deps.Hooks == nil {
		deps.Hooks = domain.NopHooks{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Backoff == nil {
		deps.Backoff = retryBackoff
	}
	return &Runner{
		llm:        deps.LLM,
		tools:      deps.Tools,
		agents:     deps.Agents,
		hooks:      deps.Hooks,
		store:      deps.Store,
		logger:     deps.Logger,
		maxTurns:   deps.MaxTurns,
		builder:    NewContextBuilder(deps.ContextMessages, deps.Models),
		classifier: NewErrorClassifier(),
		subagents:  newSubAgentPool(deps.SubAgent, deps.Logger),
		traceMeta:  deps.TraceMetadata,
		backoff:    deps.Backoff,
	}
}

// Run executes agentName on input until an agent produces a final answer.
func (r *Runner) Run(ctx context.Context, agentName, input string) (*domain.RunResult, error) {
	return r.run(ctx, agentName, input, false)
}

// RunStream is Run with model text forwarded to the hooks' OnDelta as it is
// generated.
func (r *Runner) RunStream(ctx context.Context, agentName, input string) (*domain.RunResult, error) {
	return r.run(ctx, agentName, input, true)
}

func (r *Runner) run(ctx context.Context, agentName, input string, stream bool) (*domain.RunResult, error) {
	started := time.Now()
	runID := NewID(started)
	ctx = domain.ContextWithRunID(ctx, runID)

	agent, ok := r.agents.Agent(agentName)
	if !ok {
		err := domain.NewSubSystemError("crew", "Runner.Run", domain.ErrNotFound, "agent "+agentName)
		r.record(ctx, runID, agentName, input, started, nil, err)
		return nil, err
	}

	attrs := append(tracer.MapAttrs("crew.trace.", r.traceMeta),
		tracer.StringAttr("crew.run_id", runID),
		tracer.StringAttr("crew.start_agent", agent.Name),
		tracer.StringAttr("crew.stream", fmt.Sprintf("%t", stream)),
	)
	ctx, span := tracer.StartSpan(ctx, "crew.run", trace.WithAttributes(attrs...))
	defer span.End()

	session := NewSession()

	res, err := r.loop(ctx, session, agent, input, r.maxTurns, stream, r.hooks)
	res.RunID = runID
	r.record(ctx, runID, agent.Name, input, started, res, err)

	if err != nil {
		tracer.RecordError(span, err)
		r.logger.WarnContext(ctx, "run failed", "agent", res.LastAgent, "turns", res.Turns, "error", err)
		return res, err
	}
	span.SetAttributes(
		tracer.StringAttr("crew.last_agent", res.LastAgent),
		tracer.IntAttr("crew.turns", res.Turns),
		tracer.IntAttr("crew.total_tokens", res.Usage.TotalTokens),
	)
	tracer.SetOK(span)
	r.logger.InfoContext(ctx, "run completed", "agent", res.LastAgent,
		"turns", res.Turns, "tokens", res.Usage.TotalTokens, "duration", time.Since(started))
	return res, nil
}

// runNested runs agent as a tool of another agent: fresh session, no
// streaming, sub-agent turn limit, not recorded.
func (r *Runner) runNested(ctx context.Context, agent domain.AgentSpec, input string, hooks domain.RunHooks) (*domain.RunResult, error) {
	ctx, span := tracer.StartSpan(ctx, "crew.subagent",
		trace.WithAttributes(tracer.StringAttr("crew.agent", agent.Name)))
	defer span.End()

	res, err := r.loop(ctx, NewSession(), agent, input, r.subagents.config.MaxTurns, false, hooks)
	if err != nil {
		tracer.RecordError(span, err)
		return res, err
	}
	tracer.SetOK(span)
	return res, nil
}

// loop is the turn loop shared by top-level and nested runs. It always
// returns a non-nil result describing how far the run got.
func (r *Runner) loop(ctx context.Context, session *Session, agent domain.AgentSpec, input string, maxTurns int, stream bool, hooks domain.RunHooks) (*domain.RunResult, error) {
	ctx = domain.ContextWithSessionID(ctx, session.ID)
	res := &domain.RunResult{LastAgent: agent.Name}

	session.AddMessage(domain.Message{
		Role:      domain.RoleUser,
		Content:   input,
		Timestamp: time.Now(),
	})
	hooks.OnAgentStart(ctx, agent.Name, input)

	for res.Turns < maxTurns {
		if err := ctx.Err(); err != nil {
			res.Messages = session.Messages()
			return res, err
		}

		tools, err := r.toolsetFor(agent, hooks)
		if err != nil {
			res.Messages = session.Messages()
			return res, err
		}

		req := r.builder.Build(agent, session.Messages(), tools.Schemas())
		res.Turns++

		msg, usage, err := r.callLLM(ctx, agent.Name, req, stream, hooks)
		if err != nil {
			res.Messages = session.Messages()
			return res, domain.WrapOp("Runner.Run", err)
		}
		res.Usage.Add(usage)
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		msg.Agent = agent.Name
		session.AddMessage(msg)

		r.logger.DebugContext(ctx, "llm response",
			"agent", agent.Name,
			"turn", res.Turns,
			"tool_calls", len(msg.ToolCalls),
			"tokens", usage.TotalTokens,
		)

		if len(msg.ToolCalls) == 0 {
			hooks.OnAgentEnd(ctx, agent.Name, msg.Content)
			res.FinalOutput = msg.Content
			res.Messages = session.Messages()
			return res, nil
		}

		next := r.executeTurn(ctx, session, agent.Name, tools, msg.ToolCalls, hooks)
		if next == "" {
			continue
		}
		target, ok := r.agents.Agent(next)
		if !ok {
			res.Messages = session.Messages()
			return res, domain.NewSubSystemError("crew", "Runner.Handoff", domain.ErrNotFound, "agent "+next)
		}
		hooks.OnHandoff(ctx, agent.Name, target.Name)
		r.logger.InfoContext(ctx, "handoff", "from", agent.Name, "to", target.Name)
		agent = target
		res.LastAgent = agent.Name
		hooks.OnAgentStart(ctx, agent.Name, input)
	}

	res.Messages = session.Messages()
	return res, domain.NewDomainError("Runner.Run", domain.ErrMaxTurns,
		fmt.Sprintf("%d turns without a final answer", maxTurns))
}

// toolsetFor collects the tools agent can call: its registry tools,
// sub-agents wrapped as tools and handoff functions.
func (r *Runner) toolsetFor(agent domain.AgentSpec, hooks domain.RunHooks) (*agentToolset, error) {
	ts := newAgentToolset(NewScopedToolbox(r.tools, agent.Tools))
	for _, name := range agent.SubAgents {
		sub, ok := r.agents.Agent(name)
		if !ok {
			return nil, domain.NewSubSystemError("crew", "Runner.Tools", domain.ErrNotFound, "sub-agent "+name)
		}
		ts.add(newAgentTool(sub, r, hooks))
	}
	for _, name := range agent.Handoffs {
		target, ok := r.agents.Agent(name)
		if !ok {
			return nil, domain.NewSubSystemError("crew", "Runner.Tools", domain.ErrNotFound, "handoff "+name)
		}
		ts.addHandoff(target)
	}
	return ts, nil
}

// executeTurn runs the tool calls of one assistant message in parallel and
// appends their results in call order. It returns the handoff target when
// one of the calls transferred control.
func (r *Runner) executeTurn(ctx context.Context, session *Session, agent string, tools *agentToolset, calls []domain.ToolCall, hooks domain.RunHooks) string {
	results := make([]domain.Message, len(calls))
	var handoff string

	var wg sync.WaitGroup
	for i, call := range calls {
		if target, ok := tools.handoffTarget(call.Name); ok {
			if handoff == "" {
				handoff = target
				results[i] = toolResultMessage(call, handoffResult(target))
			} else {
				results[i] = toolResultMessage(call, ignoredHandoffContent)
			}
			continue
		}
		wg.Add(1)
		go func(idx int, c domain.ToolCall) {
			defer wg.Done()
			results[idx] = r.executeTool(ctx, agent, tools, c, hooks)
		}(i, call)
	}
	wg.Wait()

	for _, msg := range results {
		session.AddMessage(msg)
	}
	return handoff
}

// executeTool runs a single tool call. Every failure becomes an error
// result for the model.
func (r *Runner) executeTool(ctx context.Context, agent string, tools domain.Toolbox, call domain.ToolCall, hooks domain.RunHooks) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "crew.execute_tool",
		trace.WithAttributes(
			tracer.StringAttr("tool.name", call.Name),
			tracer.StringAttr("crew.agent", agent),
		),
	)
	defer span.End()

	hooks.OnToolCall(ctx, agent, call)

	result := r.invoke(ctx, tools, call)
	result.ToolCallID = call.ID
	if result.IsError {
		tracer.RecordError(span, errors.New(result.Content))
		r.logger.DebugContext(ctx, "tool returned error", "agent", agent, "tool", call.Name, "error", result.Content)
	} else {
		tracer.SetOK(span)
	}

	hooks.OnToolResult(ctx, agent, call, result)
	return toolResultMessage(call, result.Content)
}

func (r *Runner) invoke(ctx context.Context, tools domain.Toolbox, call domain.ToolCall) domain.ToolResult {
	tool, err := tools.Get(call.Name)
	if err != nil {
		return *domain.ErrorResult("Tool %s not found", call.Name)
	}
	result, err := tool.Execute(ctx, call.Args())
	switch {
	case err != nil:
		res := domain.ErrorResult("%s", err.Error())
		res.IsRetryable = domain.IsRetryableError(err)
		return *res
	case result == nil:
		return domain.ToolResult{}
	}
	return *result
}

// record saves the run outcome when a store is configured. Store failures
// are logged and never fail the run.
func (r *Runner) record(ctx context.Context, runID, startAgent, input string, started time.Time, res *domain.RunResult, runErr error) {
	if r.store == nil {
		return
	}
	rec := domain.RunRecord{
		ID:         runID,
		StartAgent: startAgent,
		LastAgent:  startAgent,
		Input:      input,
		Status:     domain.RunStatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if res != nil {
		rec.LastAgent = res.LastAgent
		rec.FinalOutput = res.FinalOutput
		rec.Turns = res.Turns
		rec.TotalTokens = res.Usage.TotalTokens
	}
	if runErr != nil {
		rec.Status = domain.RunStatusFailed
		rec.ErrorCode = domain.ErrorCodeOf(runErr)
		rec.Error = runErr.Error()
	}

	// The run context may already be cancelled.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.SaveRun(saveCtx, rec); err != nil {
		r.logger.WarnContext(ctx, "failed to record run", "error", err)
	}
}
