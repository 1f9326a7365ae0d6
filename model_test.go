package infer

import "testing"

func TestInferenceRequest_Validate_DuplicateToolNames(t *testing.T) {
	req := NewInferenceRequest("m", nil).WithTools(
		Tool{Name: "search"},
		Tool{Name: "search"},
	)
	err := req.Validate()
	if err == nil {
		t.Fatal("expected error for duplicate tool names")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}

func TestNewTool_RejectsMalformedSchema(t *testing.T) {
	_, err := NewTool("weather", "gets the weather", map[string]any{
		"type":       "object",
		"properties": "not-an-object",
	})
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}

func TestNewTool_AcceptsValidSchema(t *testing.T) {
	tool, err := NewTool("weather", "gets the weather", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
		"required": []any{"city"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tool.Name != "weather" {
		t.Fatalf("unexpected tool: %+v", tool)
	}
}

func TestNewTool_AcceptsEmptySchema(t *testing.T) {
	if _, err := NewTool("noop", "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
