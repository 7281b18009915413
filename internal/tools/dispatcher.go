package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pysugar/digital-twin/internal/util"
)

// Dispatch executes one tool call and always returns conversational text.
// Failures of any kind (unknown tool, malformed arguments, handler errors,
// panics) come back as strings for the model to read and recover from, never
// as errors that would abort the conversation.
func (r *Registry) Dispatch(ctx context.Context, userID, name, rawArgs string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Tool %s panicked: %v", name, rec)
			result = fmt.Sprintf("Error executing %s: internal error", name)
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		log.Printf("⚠️ Unknown tool requested: %s", name)
		return fmt.Sprintf("Unknown tool: %s", name)
	}

	if rawArgs == "" {
		rawArgs = "{}"
	}
	args := make(map[string]any)
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		log.Printf("⚠️ Tool %s: malformed arguments: %v", name, err)
		return fmt.Sprintf("Error executing %s: invalid arguments: %v", name, err)
	}
	if err := t.schema.Validate(args); err != nil {
		log.Printf("⚠️ Tool %s: arguments rejected by schema: %v", name, err)
		return fmt.Sprintf("Error executing %s: invalid arguments: %v", name, err)
	}

	log.Printf("🔧 Calling tool: %s", name)
	log.Printf("🔧   Arguments: %s", util.TruncateLog(rawArgs, 512))

	out, err := t.handler(ctx, userID, args)
	if err != nil {
		log.Printf("❌ Tool %s failed: %v", name, err)
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}

	log.Printf("🔧   Result: %s", util.TruncateLog(out, 200))
	return out
}

// Argument extraction helpers. The schema has already validated types, so
// these only need to cope with absent optional fields.

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
