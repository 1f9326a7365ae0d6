package infer

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// validateSchemaDocument compiles doc as a JSON Schema resource, which
// rejects anything that is not a structurally valid schema (bad $ref,
// malformed keyword values, wrong types for keywords, and so on). An
// empty/nil document is accepted, since a tool with no declared
// parameters is an empty object schema.
func validateSchemaDocument(doc map[string]any) error {
	if len(doc) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool-input-schema.json", doc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	if _, err := compiler.Compile("tool-input-schema.json"); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}
