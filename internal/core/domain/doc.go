// Package domain defines the core business entities for cortexdocs.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A staged source file identified by filepath and filename
//   - Page: One parsed page of a Document, carrying copies of the derived fields
//   - Signature: A validated (name, title, date) triple
//   - Chunk: A searchable, overlapping slice of one Page
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
