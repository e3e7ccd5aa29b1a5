// Package provider defines the capability-provider contract and the concrete
// providers that delegate tool calls to the ADT backend. Each provider owns
// an exclusive subset of tool names; the registry enforces uniqueness when
// the providers are assembled.
package provider

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/abaplab/adt-mcp/internal/adt"
)

// Descriptor is the metadata of one callable tool.
type Descriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Provider exposes a set of tool descriptors and executes them by name.
//
// Execute must not catch and suppress session-expiry failures: the
// resilience layer needs to observe them to decide on a reconnect.
type Provider interface {
	Tools() []Descriptor
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// Schema builds an object input schema from property name to Go-ish type
// string, marking the listed property names as required.
//
// Type mappings:
//   - "string"           -> {"type": "string"}
//   - "int", "int64"     -> {"type": "integer"}
//   - "float64", "number"-> {"type": "number"}
//   - "bool"             -> {"type": "boolean"}
//   - "[]string"         -> {"type": "array", "items": {"type": "string"}}
//   - "object"           -> {"type": "object"}
func Schema(props map[string]string, required ...string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	for name, goType := range props {
		properties[name] = typeSchema(goType)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// EmptySchema is the schema for tools taking no arguments.
func EmptySchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func typeSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return &jsonschema.Schema{Type: "array", Items: typeSchema(goType[2:])}
		}

		return &jsonschema.Schema{Type: "string"}
	}
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", adt.NewInvalidParams(fmt.Sprintf("%s is required", key))
	}

	return v, nil
}

// optStringArg extracts an optional string argument, empty when absent.
func optStringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)

	return v
}

// intArg extracts an optional integer argument with a default. JSON numbers
// arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// unknownTool reports a name dispatched to a provider that does not own it.
// The registry guards against this; hitting it means the provider's Tools()
// list and Execute switch drifted apart.
func unknownTool(provider, name string) error {
	return adt.NewMethodNotFound(fmt.Sprintf("%s (provider %s)", name, provider))
}
