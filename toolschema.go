package infer

import (
	"encoding/json"
	"fmt"

	"github.com/quillhatch/infer/internal/jsonschema"
)

// NewToolFromStruct derives a tool's input_schema from a Go struct type via
// reflection instead of requiring the caller to hand-write a JSON Schema
// document. T is typically a plain struct with `json` tags describing the
// tool's arguments.
//
//	type weatherArgs struct {
//		City string `json:"city"`
//	}
//	tool, err := infer.NewToolFromStruct[weatherArgs]("get_weather", "gets the weather")
func NewToolFromStruct[T any](name, description string) (Tool, error) {
	schema := jsonschema.GenerateJSONSchema[T]()

	encoded, err := json.Marshal(schema)
	if err != nil {
		return Tool{}, &ConfigError{Message: fmt.Sprintf("tool %q: marshal generated schema", name), Cause: err}
	}

	var doc map[string]any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return Tool{}, &ConfigError{Message: fmt.Sprintf("tool %q: decode generated schema", name), Cause: err}
	}

	return NewTool(name, description, doc)
}
