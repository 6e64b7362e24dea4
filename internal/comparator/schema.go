package comparator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildVerdictSchema returns the JSON-Schema the model's answer must match.
// It is sent to the model alongside the prompt and used locally to validate
// the response; anything that deviates is treated as malformed, never as a
// clean verdict.
func BuildVerdictSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"discrepancies": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"field":          map[string]any{"type": "string", "minLength": 1},
						"master_value":   map[string]any{"type": "string"},
						"document_value": map[string]any{"type": "string"},
						"explanation":    map[string]any{"type": "string"},
					},
					"required": []string{"field", "master_value", "document_value"},
				},
			},
		},
		"required": []string{"discrepancies"},
	}
}

func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
