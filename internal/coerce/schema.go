package coerce

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// summarySchema types every field of a structured summary. Only
// concise_summary is required; null is accepted wherever a model might
// leave a field blank. Unknown keys are allowed and ignored.
const summarySchema = `{
	"type": "object",
	"required": ["concise_summary"],
	"properties": {
		"concise_summary": {"type": "string"},
		"key_points":      {"type": ["array", "null"], "items": {"type": "string"}},
		"novelty":         {"type": ["string", "null"]},
		"limitations":     {"type": ["string", "null"]},
		"next_questions":  {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`

var compiledSummarySchema = mustCompileSchema("summary.json", summarySchema)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("coerce: adding schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("coerce: compiling schema %s: %v", name, err))
	}
	return schema
}

// validateSummary checks a decoded JSON value against the summary schema.
func validateSummary(v any) error {
	if err := compiledSummarySchema.Validate(v); err != nil {
		return fmt.Errorf("coerce: reply does not match summary schema: %w", err)
	}
	return nil
}
