package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func newDispatcherRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()

	err := r.Register(Definition{
		Name: "greet",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"name": {"type": "string"}},
			"required": ["name"]
		}`),
	}, func(ctx context.Context, userID string, args map[string]any) (string, error) {
		return fmt.Sprintf("hello %s from %s", args["name"], userID), nil
	})
	if err != nil {
		t.Fatalf("Register(greet) error = %v", err)
	}

	err = r.Register(Definition{
		Name:       "fail",
		Parameters: json.RawMessage(`{"type": "object"}`),
	}, func(ctx context.Context, userID string, args map[string]any) (string, error) {
		return "", errors.New("backend unavailable")
	})
	if err != nil {
		t.Fatalf("Register(fail) error = %v", err)
	}

	err = r.Register(Definition{
		Name:       "explode",
		Parameters: json.RawMessage(`{"type": "object"}`),
	}, func(ctx context.Context, userID string, args map[string]any) (string, error) {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Register(explode) error = %v", err)
	}
	return r
}

func TestDispatch_Success(t *testing.T) {
	r := newDispatcherRegistry(t)
	result := r.Dispatch(context.Background(), "user-1", "greet", `{"name": "sam"}`)
	if result != "hello sam from user-1" {
		t.Errorf("Dispatch() = %q", result)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	r := newDispatcherRegistry(t)
	result := r.Dispatch(context.Background(), "user-1", "no_such_tool", `{}`)
	if result != "Unknown tool: no_such_tool" {
		t.Errorf("Dispatch() = %q, want unknown-tool message", result)
	}
}

func TestDispatch_ErrorsBecomeText(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		rawArgs string
		want    string
	}{
		{"handler error", "fail", `{}`, "Error executing fail: backend unavailable"},
		{"malformed json", "greet", `{not json`, "Error executing greet: invalid arguments"},
		{"schema violation", "greet", `{"name": 42}`, "Error executing greet: invalid arguments"},
		{"missing required", "greet", `{}`, "Error executing greet: invalid arguments"},
		{"panic recovered", "explode", `{}`, "Error executing explode: internal error"},
	}

	r := newDispatcherRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Dispatch(context.Background(), "user-1", tt.tool, tt.rawArgs)
			if !strings.HasPrefix(result, tt.want) {
				t.Errorf("Dispatch() = %q, want prefix %q", result, tt.want)
			}
		})
	}
}

func TestDispatch_EmptyArgsDefaultToObject(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name:       "list",
		Parameters: json.RawMessage(`{"type": "object", "properties": {"query": {"type": "string"}}}`),
	}, func(ctx context.Context, userID string, args map[string]any) (string, error) {
		return fmt.Sprintf("query=%q", stringArg(args, "query")), nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result := r.Dispatch(context.Background(), "user-1", "list", "")
	if result != `query=""` {
		t.Errorf("Dispatch() = %q", result)
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"text":  "hello",
		"count": float64(7),
		"list":  []any{"a", "b"},
	}
	if got := stringArg(args, "text"); got != "hello" {
		t.Errorf("stringArg() = %q", got)
	}
	if got := stringArg(args, "missing"); got != "" {
		t.Errorf("stringArg(missing) = %q, want empty", got)
	}
	if got := intArg(args, "count", 25); got != 7 {
		t.Errorf("intArg() = %d, want 7", got)
	}
	if got := intArg(args, "missing", 25); got != 25 {
		t.Errorf("intArg(missing) = %d, want fallback 25", got)
	}
	if got := stringSliceArg(args, "list"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("stringSliceArg() = %v", got)
	}
}
