// Package tools holds the registry of functions the model may call and the
// dispatcher that executes them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pysugar/digital-twin/internal/llm"
)

// Handler executes one tool call on behalf of a user. The returned string is
// fed back to the model verbatim.
type Handler func(ctx context.Context, userID string, args map[string]any) (string, error)

// Definition describes a tool in the shape the chat completions API expects.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

type registeredTool struct {
	def     Definition
	schema  *jsonschema.Schema
	handler Handler
}

// Registry maps tool names to their handlers. Registration compiles each
// parameter schema, so an invalid catalog fails at startup rather than
// mid-conversation.
type Registry struct {
	order []string
	tools map[string]*registeredTool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register adds a tool. It fails on duplicate names, missing handlers, or a
// parameter schema that does not compile.
func (r *Registry) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %s: handler is required", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s: already registered", def.Name)
	}

	schema, err := jsonschema.CompileString(def.Name+".json", string(def.Parameters))
	if err != nil {
		return fmt.Errorf("tool %s: invalid parameter schema: %w", def.Name, err)
	}

	r.tools[def.Name] = &registeredTool{def: def, schema: schema, handler: handler}
	r.order = append(r.order, def.Name)
	return nil
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Definitions returns the tool advertisements in registration order.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolDefinition{
				Name:        t.def.Name,
				Description: t.def.Description,
				Parameters:  t.def.Parameters,
			},
		})
	}
	return defs
}
