package usecase

import (
	"time"

	"content-crew/internal/domain"
)

// ContextBuilder turns an agent and the shared history into a chat request.
type ContextBuilder struct {
	maxMessages int
	models      map[string]string // agent name → model override
}

// NewContextBuilder creates a builder that keeps at most maxMessages history
// messages per request (0 = unlimited). models overrides agent models by
// agent name.
func NewContextBuilder(maxMessages int, models map[string]string) *ContextBuilder {
	return &ContextBuilder{maxMessages: maxMessages, models: models}
}

// Build assembles: agent instructions + repaired, truncated history.
func (cb *ContextBuilder) Build(agent domain.AgentSpec, history []domain.Message, tools []domain.ToolSchema) domain.ChatRequest {
	return cb.build(agent, history, tools, cb.maxMessages)
}

// Shrink rebuilds req with half of its history, for retrying after the
// provider reported a context overflow. ok is false when there is nothing
// left to drop.
func (cb *ContextBuilder) Shrink(req domain.ChatRequest) (domain.ChatRequest, bool) {
	if len(req.Messages) <= 2 {
		return req, false
	}
	history := req.Messages[1:]
	kept := truncateHistory(history, len(history)/2)
	if len(kept) >= len(history) {
		return req, false
	}
	out := req
	out.Messages = append([]domain.Message{req.Messages[0]}, kept...)
	return out, true
}

func (cb *ContextBuilder) build(agent domain.AgentSpec, history []domain.Message, tools []domain.ToolSchema, budget int) domain.ChatRequest {
	messages := make([]domain.Message, 0, 1+len(history))
	messages = append(messages, domain.Message{
		Role:      domain.RoleSystem,
		Content:   agent.Instructions,
		Timestamp: time.Now(),
	})

	hist := RepairTranscript(history)
	hist = truncateHistory(hist, budget)
	messages = append(messages, hist...)

	req := domain.ChatRequest{
		Model:    cb.modelFor(agent),
		Messages: messages,
		Tools:    tools,
	}
	if s := agent.ModelSettings; s != nil {
		req.Temperature = s.Temperature
		req.TopP = s.TopP
		req.MaxTokens = s.MaxTokens
		req.Store = s.Store
	}
	return req
}

func (cb *ContextBuilder) modelFor(agent domain.AgentSpec) string {
	if m, ok := cb.models[agent.Name]; ok && m != "" {
		return m
	}
	return agent.Model
}

// truncateHistory keeps the newest messages within maxMessages without
// splitting an assistant tool-call message from its results. The newest
// group is always kept, even when it alone exceeds the budget.
func truncateHistory(history []domain.Message, maxMessages int) []domain.Message {
	if maxMessages <= 0 || len(history) <= maxMessages {
		return history
	}

	groups := groupMessages(history)

	start := len(groups)
	total := 0
	for i := len(groups) - 1; i >= 0; i-- {
		if total+len(groups[i]) > maxMessages && total > 0 {
			break
		}
		total += len(groups[i])
		start = i
	}

	result := make([]domain.Message, 0, total)
	for _, g := range groups[start:] {
		result = append(result, g...)
	}
	return result
}

// groupMessages partitions messages into atomic groups: an assistant
// message with tool calls together with the tool results that follow it,
// or a single message.
func groupMessages(msgs []domain.Message) [][]domain.Message {
	var groups [][]domain.Message
	for i := 0; i < len(msgs); {
		if msgs[i].Role == domain.RoleAssistant && len(msgs[i].ToolCalls) > 0 {
			j := i + 1
			for j < len(msgs) && msgs[j].Role == domain.RoleTool {
				j++
			}
			groups = append(groups, msgs[i:j])
			i = j
			continue
		}
		groups = append(groups, msgs[i:i+1])
		i++
	}
	return groups
}
