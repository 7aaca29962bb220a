package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Sections are the top-level keys an extraction is expected to carry.
var Sections = []string{
	"document_classification",
	"source",
	"physical_properties",
	"official_marks",
	"signatures_authorization",
	"routing_distribution",
	"content",
	"structural_elements",
	"attachments_references",
	"condition_notes",
	"confidence_quality",
}

// BuildExtractionSchema returns the JSON Schema for one page extraction.
// Only the coarse shape is constrained; models vary too much in detail.
func BuildExtractionSchema() map[string]any {
	props := map[string]any{}
	for _, s := range Sections {
		props[s] = map[string]any{"type": "object"}
	}

	nullableString := map[string]any{"type": []any{"string", "null"}}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": []any{"string", "null"}}}

	props["document_classification"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":                nullableString,
			"subtype":             nullableString,
			"category":            nullableString,
			"primary_language":    nullableString,
			"secondary_languages": stringList,
		},
	}
	props["content"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject":   nullableString,
			"keywords":  stringList,
			"full_text": nullableString,
			"tables": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"headers": map[string]any{"type": "array"},
						"rows":    map[string]any{"type": "array", "items": map[string]any{"type": "array"}},
					},
				},
			},
			"lists":  map[string]any{"type": "array"},
			"charts": map[string]any{"type": "array"},
		},
	}
	props["confidence_quality"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overall_confidence":     nullableString,
			"requires_manual_review": map[string]any{"type": []any{"boolean", "null"}},
			"uncertain_elements":     stringList,
			"review_reasons":         stringList,
		},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"document_classification", "content"},
	}
}

// compileSchema turns a schema map into a validator.
func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("extraction.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// violations flattens a validation failure into one line per leaf cause.
func violations(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
