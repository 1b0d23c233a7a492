package questiongen

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const envelopeSchemaURL = "schema://exam-questions.json"

// envelopeDefinition only fixes the outer shape. Individual questions are
// validated one by one so a bad item is dropped, not fatal.
var envelopeDefinition = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{
			"type": "array",
		},
	},
}

var envelopeSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, envelopeDefinition); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(envelopeSchemaURL)
})

// validateEnvelope checks a decoded JSON value against the envelope schema.
func validateEnvelope(doc any) error {
	schema, err := envelopeSchema()
	if err != nil {
		return fmt.Errorf("compile envelope schema: %w", err)
	}
	return schema.Validate(doc)
}
