package generate

import (
	"context"
	"encoding/json"
)

// Generator issues one structured-output request to an LLM provider and
// returns the raw JSON payload. Implementations retry transient transport
// failures internally; a malformed payload is returned as-is for the caller
// to reject, never blindly retried with the same prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (json.RawMessage, error)
}

// GeneratorFunc adapts a function to the Generator interface, used by tests
// to script provider responses.
type GeneratorFunc func(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (json.RawMessage, error)

// GenerateJSON implements Generator
func (f GeneratorFunc) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (json.RawMessage, error) {
	return f(ctx, system, user, schemaName, schema)
}
