package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/feichai0017/document-analyzer/internal/models"
)

// errNotObject is returned when the content is valid JSON but not an object.
var errNotObject = errors.New("response is not a JSON object")

// stripFences removes a surrounding Markdown code block.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:nl]), "{") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// decodeObject parses content as a single JSON object, keeping numbers as
// float64 like encoding/json does for map[string]any.
func decodeObject(content string) (models.Extraction, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON: trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return models.Extraction(obj), nil
}

// parseContent converts the model reply into an Extraction. In lenient mode
// unparseable replies become raw_text and schema violations are recorded in
// the metadata; in strict mode both are errors.
func parseContent(content string, schema *jsonschema.Schema, strict bool) (models.Extraction, error) {
	cleaned := stripFences(content)

	result, err := decodeObject(cleaned)
	if err != nil {
		if strict {
			return nil, err
		}
		fallback := models.Extraction{"raw_text": content}
		fallback.Metadata()["parse_error"] = err.Error()
		return fallback, nil
	}

	if schema != nil {
		if verr := schema.Validate(map[string]any(result)); verr != nil {
			if strict {
				return nil, fmt.Errorf("json does not match schema: %w", verr)
			}
			result.Metadata()["schema_violations"] = violations(verr)
		}
	}

	return result, nil
}
