package usecase

import (
	"time"

	"content-crew/internal/domain"
)

// missingResultContent is the placeholder for a tool call whose result never
// made it into the history, e.g. after a cancelled turn.
const missingResultContent = "[error] tool call did not produce a result"

// RepairTranscript returns a copy of messages in which every assistant tool
// call is answered before the next non-tool message:
//   - calls without a result get an error result, in call order;
//   - tool results that answer no pending call are dropped.
func RepairTranscript(messages []domain.Message) []domain.Message {
	if len(messages) == 0 {
		return messages
	}

	result := make([]domain.Message, 0, len(messages))
	var pending []domain.ToolCall

	flush := func() {
		for _, tc := range pending {
			result = append(result, toolResultMessage(tc, missingResultContent))
		}
		pending = pending[:0]
	}

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleAssistant:
			flush()
			for _, tc := range msg.ToolCalls {
				if tc.ID != "" {
					pending = append(pending, tc)
				}
			}
			result = append(result, msg)

		case domain.RoleTool:
			idx := pendingIndex(pending, msg)
			if idx < 0 {
				continue
			}
			pending = append(pending[:idx], pending[idx+1:]...)
			result = append(result, msg)

		default:
			flush()
			result = append(result, msg)
		}
	}
	flush()

	return result
}

func pendingIndex(pending []domain.ToolCall, msg domain.Message) int {
	for i, tc := range pending {
		if msg.AnswersCall(tc.ID) {
			return i
		}
	}
	return -1
}

// toolResultMessage builds the tool-role message answering call.
func toolResultMessage(call domain.ToolCall, content string) domain.Message {
	return domain.Message{
		Role:       domain.RoleTool,
		Content:    content,
		ToolName:   call.Name,
		ToolCallID: call.ID,
		Timestamp:  time.Now(),
	}
}
