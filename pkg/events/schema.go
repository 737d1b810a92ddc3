package events

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator validates event data payloads against a JSON schema.
type SchemaValidator struct {
	schema map[string]any
}

// NewSchemaValidator wraps the given JSON schema document.
func NewSchemaValidator(schema map[string]any) *SchemaValidator {
	return &SchemaValidator{schema: schema}
}

// Validate checks data against the schema.
func (v *SchemaValidator) Validate(data map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(v.schema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
