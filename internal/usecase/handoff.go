package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"content-crew/internal/domain"
)

// ignoredHandoffContent answers every handoff after the first in one turn.
const ignoredHandoffContent = "Multiple handoffs detected, ignoring this one."

// handoffTool is the transfer_to_<agent> function. The runner intercepts
// calls to it; Execute only produces the result the model sees.
type handoffTool struct {
	target domain.AgentSpec
}

func newHandoffTool(target domain.AgentSpec) *handoffTool {
	return &handoffTool{target: target}
}

func (h *handoffTool) Name() string { return domain.HandoffToolName(h.target.Name) }

func (h *handoffTool) Description() string {
	desc := fmt.Sprintf("Handoff to the %s agent to handle the request.", h.target.Name)
	if h.target.HandoffDescription != "" {
		desc += " " + h.target.HandoffDescription
	}
	return desc
}

func (h *handoffTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        h.Name(),
		Description: h.Description(),
		Parameters:  json.RawMessage(`{"type":"object","properties":{},"required":[],"additionalProperties":false}`),
	}
}

func (h *handoffTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return domain.TextResult(handoffResult(h.target.Name)), nil
}

func handoffResult(agent string) string {
	data, _ := json.Marshal(map[string]string{"assistant": agent})
	return string(data)
}
