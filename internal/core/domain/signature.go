package domain

import (
	"fmt"
	"strings"
)

// MissingValue is the sentinel the extraction service emits for absent fields.
const MissingValue = "None"

// signatureFieldSeparator separates name, title and date in the raw form.
const signatureFieldSeparator = "|"

// Signature is a handwritten signature found in a Document.
type Signature struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// IsValid reports whether the signature has both a name and a date.
// Title is optional.
func (s Signature) IsValid() bool {
	return present(s.Name) && present(s.Date)
}

// String returns the canonical "Name | Title | Date" form.
func (s Signature) String() string {
	return fmt.Sprintf("%s | %s | %s", s.Name, s.Title, s.Date)
}

func present(v string) bool {
	return v != "" && v != MissingValue
}

// ParseSignature splits a raw "Name | Title | Date" string into its
// fields, trimming whitespace. Missing trailing fields are left empty.
func ParseSignature(raw string) Signature {
	fields := strings.SplitN(raw, signatureFieldSeparator, 3)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	var sig Signature
	switch len(fields) {
	case 3:
		sig.Date = fields[2]
		fallthrough
	case 2:
		sig.Title = fields[1]
		fallthrough
	case 1:
		sig.Name = fields[0]
	}
	return sig
}

// ValidSignatures parses and filters raw signature strings.
// It returns nil, never an empty slice, when no candidate is valid.
func ValidSignatures(raw []string) []Signature {
	var kept []Signature
	for _, r := range raw {
		if sig := ParseSignature(r); sig.IsValid() {
			kept = append(kept, sig)
		}
	}
	return kept
}
