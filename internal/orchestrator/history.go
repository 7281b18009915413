package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/pysugar/digital-twin/internal/llm"
)

// HistoryWindow caps how many prior turns are replayed to the model.
const HistoryWindow = 20

// ToolInvocation records one tool call made during an assistant turn,
// including its result so later turns can be replayed faithfully.
type ToolInvocation struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result"`
}

// Turn is one message in the client-visible conversation history.
type Turn struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
}

// buildMessages reconstructs the wire-level message list from the stored
// conversation: system prompt, then the windowed history, then the new user
// message. An assistant turn that made N tool calls expands into one
// assistant message carrying all N calls followed by N tool-result messages
// with matching IDs.
func buildMessages(system string, history []Turn, userMessage string) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: system}}

	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	for _, turn := range history {
		switch turn.Role {
		case "user":
			messages = append(messages, llm.Message{Role: "user", Content: turn.Content})
		case "assistant":
			if len(turn.ToolCalls) == 0 {
				messages = append(messages, llm.Message{Role: "assistant", Content: turn.Content})
				continue
			}

			calls := make([]llm.ToolCall, 0, len(turn.ToolCalls))
			for i, inv := range turn.ToolCalls {
				args, err := json.Marshal(inv.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				calls = append(calls, llm.ToolCall{
					ID:   callID(inv.ID, i),
					Type: "function",
					Function: llm.FunctionCall{
						Name:      inv.Name,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, llm.Message{
				Role:      "assistant",
				Content:   turn.Content,
				ToolCalls: calls,
			})
			for i, inv := range turn.ToolCalls {
				messages = append(messages, llm.Message{
					Role:       "tool",
					ToolCallID: callID(inv.ID, i),
					Content:    inv.Result,
				})
			}
		}
	}

	return append(messages, llm.Message{Role: "user", Content: userMessage})
}

// callID falls back to a positional ID for histories recorded before call IDs
// were stored.
func callID(id string, index int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("call_%d", index)
}
