// Package orchestrator drives the tool-calling conversation loop between the
// model and the registered tools.
package orchestrator

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/pysugar/digital-twin/internal/llm"
	"github.com/pysugar/digital-twin/internal/tools"
)

// MaxToolRounds caps how many consecutive tool-calling rounds the model gets
// before it is forced to answer. Guards against request loops.
const MaxToolRounds = 8

// fallbackResponse stands in when the model returns an empty final message.
const fallbackResponse = "I couldn't generate a response."

// Inference is the slice of the LLM client the loop needs.
type Inference interface {
	ChatCompletion(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Message, error)
}

// Capabilities reports whether a user has any connected providers. Users
// without connections chat in plain-assistant mode, with no tools advertised.
type Capabilities interface {
	HasConnections(userID string) bool
}

// Result is the outcome of one conversation turn.
type Result struct {
	Response  string
	ToolsUsed []string
	ToolCalls []ToolInvocation
}

// Orchestrator runs conversation turns against the model, dispatching tool
// calls through the registry.
type Orchestrator struct {
	inference    Inference
	registry     *tools.Registry
	capabilities Capabilities
	now          func() time.Time
}

// New creates an orchestrator. A nil capabilities source disables tools for
// every turn.
func New(inference Inference, registry *tools.Registry, capabilities Capabilities) *Orchestrator {
	return &Orchestrator{
		inference:    inference,
		registry:     registry,
		capabilities: capabilities,
		now:          time.Now,
	}
}

// Run executes one conversation turn: it rebuilds the wire messages from the
// stored history, asks the model, and dispatches tool calls sequentially
// until the model answers in text or the round cap trips. Tool failures are
// fed back to the model as text; only model transport failures abort the
// turn.
func (o *Orchestrator) Run(ctx context.Context, userID, message string, history []Turn) (*Result, error) {
	withTools := userID != "" && o.capabilities != nil && o.capabilities.HasConnections(userID)

	var toolset []llm.Tool
	if withTools {
		toolset = o.registry.Definitions()
	}

	messages := buildMessages(systemPrompt(withTools, o.now()), history, message)
	result := &Result{}

	assistant, err := o.inference.ChatCompletion(ctx, messages, toolset)
	if err != nil {
		return nil, err
	}

	rounds := 0
	for withTools && len(assistant.ToolCalls) > 0 {
		if rounds >= MaxToolRounds {
			log.Printf("⚠️ Tool round cap reached after %d rounds, forcing final answer", rounds)
			if assistant.Content != "" {
				result.Response = assistant.Content
			} else {
				result.Response = "I wasn't able to complete that within the allowed number of tool calls. Could you narrow down the request?"
			}
			return result, nil
		}
		rounds++

		messages = append(messages, *assistant)
		for _, call := range assistant.ToolCalls {
			result.ToolsUsed = append(result.ToolsUsed, call.Function.Name)

			output := o.registry.Dispatch(ctx, userID, call.Function.Name, call.Function.Arguments)

			args := make(map[string]any)
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				// Keep the log faithful to what the model actually sent.
				args = map[string]any{"_raw": call.Function.Arguments}
			}
			result.ToolCalls = append(result.ToolCalls, ToolInvocation{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: args,
				Result:    output,
			})

			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    output,
			})
		}

		assistant, err = o.inference.ChatCompletion(ctx, messages, toolset)
		if err != nil {
			return nil, err
		}
	}

	result.Response = assistant.Content
	if result.Response == "" {
		result.Response = fallbackResponse
	}
	return result, nil
}
