package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pysugar/digital-twin/internal/services/calendar"
	"github.com/pysugar/digital-twin/internal/services/gmail"
	"github.com/pysugar/digital-twin/internal/services/notion"
)

func echoHandler(ctx context.Context, userID string, args map[string]any) (string, error) {
	return "ok", nil
}

func TestRegister_CompilesSchema(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name:       "echo",
		Parameters: json.RawMessage(`{"type": "object", "properties": {"text": {"type": "string"}}}`),
	}, echoHandler)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegister_InvalidSchema(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name:       "broken",
		Parameters: json.RawMessage(`{"type": "not-a-type"}`),
	}, echoHandler)
	if err == nil {
		t.Fatal("Register() should reject an invalid schema")
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	r := NewRegistry()
	def := Definition{Name: "echo", Parameters: json.RawMessage(`{"type": "object"}`)}
	if err := r.Register(def, echoHandler); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register(def, echoHandler); err == nil {
		t.Fatal("Register() should reject a duplicate name")
	}
}

func TestRegister_MissingHandler(t *testing.T) {
	r := NewRegistry()
	def := Definition{Name: "echo", Parameters: json.RawMessage(`{"type": "object"}`)}
	if err := r.Register(def, nil); err == nil {
		t.Fatal("Register() should reject a nil handler")
	}
}

func TestDefinitions_PreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		def := Definition{Name: name, Parameters: json.RawMessage(`{"type": "object"}`)}
		if err := r.Register(def, echoHandler); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}
	defs := r.Definitions()
	want := []string{"charlie", "alpha", "bravo"}
	for i, d := range defs {
		if d.Function.Name != want[i] {
			t.Errorf("Definitions()[%d] = %s, want %s", i, d.Function.Name, want[i])
		}
		if d.Type != "function" {
			t.Errorf("Definitions()[%d].Type = %s, want function", i, d.Type)
		}
	}
}

func TestDefaultRegistry_FullCatalog(t *testing.T) {
	r, err := DefaultRegistry(calendar.NewClient(nil), gmail.NewClient(nil), notion.NewClient(nil))
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}
	if r.Len() != 15 {
		t.Errorf("Len() = %d, want 15", r.Len())
	}

	expected := []string{
		"get_calendar_events",
		"get_emails",
		"get_email_content",
		"get_email_thread",
		"create_calendar_event",
		"update_calendar_event",
		"share_calendar_event",
		"delete_calendar_event",
		"search_notion",
		"get_notion_page",
		"create_notion_page",
		"update_notion_page",
		"update_notion_block",
		"delete_notion_block",
		"delete_notion_page",
	}
	defs := r.Definitions()
	if len(defs) != len(expected) {
		t.Fatalf("Definitions() returned %d tools, want %d", len(defs), len(expected))
	}
	for i, name := range expected {
		if defs[i].Function.Name != name {
			t.Errorf("Definitions()[%d] = %s, want %s", i, defs[i].Function.Name, name)
		}
	}
}
