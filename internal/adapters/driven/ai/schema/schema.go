// Package schema turns extraction schemas into JSON Schema documents,
// instructions and response validators shared by the AI adapters.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// JSONSchema returns the JSON Schema object for an extraction schema.
// Every field is optional; strings may be null when the model omits them.
func JSONSchema(s driven.Schema) map[string]any {
	props := make(map[string]any, len(s))
	for _, f := range s {
		prop := map[string]any{"description": f.Description}
		if f.Array {
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		} else {
			prop["type"] = []any{"string", "null"}
		}
		props[f.Name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// Validator checks decoded responses against a compiled schema.
type Validator struct {
	fields driven.Schema
	schema *jsonschema.Schema
}

// NewValidator compiles the JSON Schema for s.
func NewValidator(s driven.Schema) (*Validator, error) {
	b, err := json.Marshal(JSONSchema(s))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{fields: s, schema: compiled}, nil
}

// Decode parses a model reply into a response map.
// Markdown code fences around the JSON are tolerated. Unknown keys are
// dropped and null values removed, so callers only see requested fields.
func (v *Validator) Decode(text string) (map[string]any, error) {
	body := StripFences(text)
	if body == "" {
		return nil, domain.ErrEmptyResponse
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	if err := v.schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: response is not an object", domain.ErrMalformedResponse)
	}

	out := make(map[string]any, len(v.fields))
	for _, f := range v.fields {
		if val, ok := obj[f.Name]; ok && val != nil {
			out[f.Name] = val
		}
	}
	return out, nil
}

// StripFences removes a surrounding ```json ... ``` block, if any.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Instructions renders a plain-text instruction asking for a JSON object
// with the schema's fields, for providers without native schema support.
func Instructions(s driven.Schema) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the document and reply with a single JSON object ")
	b.WriteString("and nothing else.\n\nFields:\n")
	for _, f := range s {
		kind := "string"
		if f.Array {
			kind = "array of strings"
		}
		fmt.Fprintf(&b, "- %q (%s): %s\n", f.Name, kind, f.Description)
	}
	fmt.Fprintf(&b, "\nUse %q for a value that is not present in the document.", domain.MissingValue)
	return b.String()
}
