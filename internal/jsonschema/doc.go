// Package jsonschema generates JSON Schema documents from Go types using
// reflection, so a tool's argument shape can be declared as a plain Go struct
// instead of hand-written JSON.
//
// It supports structs, primitives, slices, maps, pointers, and recursive types.
// Recursive type references are automatically resolved using $ref and $defs to
// avoid infinite loops during schema generation.
//
// The main entry point is [GenerateJSONSchema], which derives a [Schema] from any
// Go type T by reflecting on the type alone, without requiring a value of it. The infer
// package's NewToolFromStruct is the sole caller: it marshals the generated
// Schema into the map[string]any a Tool carries as its InputSchema.
package jsonschema
