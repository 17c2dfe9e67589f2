package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const artifactSchemaURL = "schema://riskscreen/artifact.json"

var artifactSchemaDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"format_version": map[string]any{"type": "integer", "minimum": 1},
		"target":         map[string]any{"type": "string"},
		"threshold":      map[string]any{"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
		"columns": map[string]any{
			"type":        "array",
			"minItems":    1,
			"uniqueItems": true,
			"items":       map[string]any{"type": "string", "minLength": 1},
		},
		"model": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type": map[string]any{
					"type": "string",
					"enum": []any{ModelLogisticRegression, ModelDecisionTree},
				},
			},
			"required": []any{"type"},
		},
	},
	"required": []any{"columns", "model"},
}

var (
	artifactSchemaOnce sync.Once
	artifactSchema     *jsonschema.Schema
	artifactSchemaErr  error
)

func compiledArtifactSchema() (*jsonschema.Schema, error) {
	artifactSchemaOnce.Do(func() {
		// the compiler wants values shaped like decoded JSON, not Go literals
		raw, err := json.Marshal(artifactSchemaDefinition)
		if err != nil {
			artifactSchemaErr = fmt.Errorf("marshal artifact schema: %w", err)
			return
		}
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			artifactSchemaErr = fmt.Errorf("parse artifact schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(artifactSchemaURL, def); err != nil {
			artifactSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		artifactSchema, artifactSchemaErr = c.Compile(artifactSchemaURL)
	})
	return artifactSchema, artifactSchemaErr
}

// validateArtifactDocument checks raw artifact bytes against the artifact schema.
func validateArtifactDocument(data []byte) error {
	schema, err := compiledArtifactSchema()
	if err != nil {
		return fmt.Errorf("compile artifact schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("artifact schema validation failed: %w", err)
	}
	return nil
}
