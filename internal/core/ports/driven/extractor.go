package driven

import (
	"context"
	"strings"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// Field is one entry of an extraction schema.
// The description is a free-text instruction, not a type constraint.
type Field struct {
	// Name is the key expected in the response.
	Name string

	// Description tells the model what to put in the field.
	Description string

	// Array requests a list of strings instead of a single string.
	Array bool
}

// Schema is an ordered set of fields to extract.
type Schema []Field

// ExtractResult is the structured response of an extraction call.
type ExtractResult struct {
	// Response maps field names to string or []any values.
	// Nil means the call produced no payload.
	Response map[string]any

	// Model is the model that produced the response.
	Model string
}

// String returns a trimmed string field. The second value is false when
// the field is absent, not a string, blank or domain.MissingValue.
func (r *ExtractResult) String(name string) (string, bool) {
	if r == nil || r.Response == nil {
		return "", false
	}
	s, ok := r.Response[name].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, domain.MissingValue) {
		return "", false
	}
	return s, true
}

// Strings returns a list field. A single string value is returned as a
// one-element list; non-string elements are dropped.
func (r *ExtractResult) Strings(name string) []string {
	if r == nil || r.Response == nil {
		return nil
	}
	switch v := r.Response[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Extractor performs schema-constrained structured extraction.
// This is an optional service - when nil, metadata and signature
// extraction are disabled.
//
// Implementations may include:
//   - Gemini (inline file parts with a response schema)
//   - Anthropic (document content blocks with JSON instructions)
type Extractor interface {
	// ExtractFile runs extraction against the original source file.
	ExtractFile(ctx context.Context, path string, schema Schema) (*ExtractResult, error)

	// ExtractText runs extraction against already-parsed text.
	ExtractText(ctx context.Context, text string, schema Schema) (*ExtractResult, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// Summariser produces short free-text summaries.
// This is an optional service - when nil, the summary stage is disabled.
type Summariser interface {
	// Summarise returns the completion for a summary prompt.
	Summarise(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
