package usecase

import (
	"testing"

	"content-crew/internal/domain"
)

func TestStreamAccumulatorContent(t *testing.T) {
	acc := newStreamAccumulator()
	acc.addDelta(domain.StreamDelta{Content: "Hello, "})
	acc.addDelta(domain.StreamDelta{Content: "world"})
	acc.addDelta(domain.StreamDelta{Done: true, Usage: &domain.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}})

	msg, usage := acc.build()
	if msg.Role != domain.RoleAssistant || msg.Content != "Hello, world" {
		t.Errorf("msg = %+v", msg)
	}
	if usage.TotalTokens != 5 {
		t.Errorf("usage = %+v", usage)
	}
	if len(msg.ToolCalls) != 0 {
		t.Errorf("unexpected tool calls: %+v", msg.ToolCalls)
	}
}

func TestStreamAccumulatorInterleavedToolCalls(t *testing.T) {
	acc := newStreamAccumulator()
	acc.addDelta(domain.StreamDelta{ToolCalls: []domain.ToolCall{{ID: "a", Name: "web_search", Arguments: []byte(`{"q":`)}}})
	acc.addDelta(domain.StreamDelta{ToolIndex: 1, ToolCalls: []domain.ToolCall{{ID: "b", Name: "write_file", Arguments: []byte(`{"path":`)}}})
	acc.addDelta(domain.StreamDelta{ToolCalls: []domain.ToolCall{{Arguments: []byte(`"go"}`)}}})
	acc.addDelta(domain.StreamDelta{ToolIndex: 1, ToolCalls: []domain.ToolCall{{Arguments: []byte(`"x.md"}`)}}})

	msg, _ := acc.build()
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ID != "a" || string(msg.ToolCalls[0].Arguments) != `{"q":"go"}` {
		t.Errorf("call 0 = %+v", msg.ToolCalls[0])
	}
	if msg.ToolCalls[1].Name != "write_file" || string(msg.ToolCalls[1].Arguments) != `{"path":"x.md"}` {
		t.Errorf("call 1 = %+v", msg.ToolCalls[1])
	}
}

func TestStreamAccumulatorDropsUnnamedSlots(t *testing.T) {
	acc := newStreamAccumulator()
	acc.addDelta(domain.StreamDelta{ToolIndex: 2, ToolCalls: []domain.ToolCall{{ID: "c", Name: "echo"}}})

	msg, _ := acc.build()
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Name != "echo" {
		t.Errorf("tool calls = %+v", msg.ToolCalls)
	}
}

func TestStreamAccumulatorIgnoresOutOfRangeIndex(t *testing.T) {
	acc := newStreamAccumulator()
	acc.addDelta(domain.StreamDelta{ToolIndex: maxToolCallsPerDelta, ToolCalls: []domain.ToolCall{{ID: "x", Name: "x"}}})
	acc.addDelta(domain.StreamDelta{ToolIndex: -1, ToolCalls: []domain.ToolCall{{ID: "y", Name: "y"}}})

	if msg, _ := acc.build(); len(msg.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %+v", msg.ToolCalls)
	}
	if len(acc.toolCalls) != 0 {
		t.Errorf("allocated %d slots", len(acc.toolCalls))
	}
}
