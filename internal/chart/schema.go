package chart

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// figureSchema is the shape an executed artifact's return value must
// satisfy before it is trusted as a figure. Traces must carry a plotly
// type; everything else is left to the renderer.
const figureSchema = `{
	"type": "object",
	"required": ["data"],
	"properties": {
		"data": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string", "minLength": 1}
				}
			}
		},
		"layout": {"type": "object"}
	}
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		schema, schemaErr = compiler.Compile([]byte(figureSchema))
	})
	return schema, schemaErr
}

// Validate checks serialized figure bytes against the figure schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("chart: compile schema: %w", err)
	}
	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("chart: schema validation failed: %v", result.Errors)
}
