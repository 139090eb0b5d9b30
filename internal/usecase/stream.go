package usecase

import (
	"strings"
	"time"

	"content-crew/internal/domain"
)

// maxToolCallsPerDelta bounds the tool call slots the accumulator will
// allocate. Higher indices are dropped.
const maxToolCallsPerDelta = 50

// streamAccumulator collects incremental deltas into a complete message.
type streamAccumulator struct {
	content   strings.Builder
	toolCalls []domain.ToolCall // by provider index
	usage     domain.Usage
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{}
}

// addDelta merges one delta. The tool call at position i of the delta has
// provider index ToolIndex+i; the first fragment for an index carries ID
// and Name, later fragments append to Arguments.
func (acc *streamAccumulator) addDelta(delta domain.StreamDelta) {
	acc.content.WriteString(delta.Content)

	for i, tc := range delta.ToolCalls {
		idx := delta.ToolIndex + i
		if idx < 0 || idx >= maxToolCallsPerDelta {
			continue
		}
		for len(acc.toolCalls) <= idx {
			acc.toolCalls = append(acc.toolCalls, domain.ToolCall{})
		}

		existing := &acc.toolCalls[idx]
		if tc.ID != "" {
			existing.ID = tc.ID
		}
		if tc.Name != "" {
			existing.Name = tc.Name
		}
		if len(tc.Arguments) > 0 {
			existing.Arguments = append(existing.Arguments, tc.Arguments...)
		}
	}

	if delta.Usage != nil {
		acc.usage = *delta.Usage
	}
}

// build returns the accumulated message and usage. Slots that never
// received a name are dropped.
func (acc *streamAccumulator) build() (domain.Message, domain.Usage) {
	var calls []domain.ToolCall
	for _, tc := range acc.toolCalls {
		if tc.Name == "" {
			continue
		}
		calls = append(calls, tc)
	}
	return domain.Message{
		Role:      domain.RoleAssistant,
		Content:   acc.content.String(),
		ToolCalls: calls,
		Timestamp: time.Now(),
	}, acc.usage
}
