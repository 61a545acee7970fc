package domain

import (
	"fmt"
	"path"
	"slices"
	"time"
)

// CanonicalPageIndex is the page that holds the authoritative copy of
// every document-level derived field.
const CanonicalPageIndex = 0

// DocumentKey uniquely identifies a Document.
type DocumentKey struct {
	// Filepath is the slash-separated path of the file relative to the staging root.
	Filepath string

	// Filename is the base name of the file.
	Filename string
}

// NewDocumentKey builds a key from a slash-separated staged path.
func NewDocumentKey(stagedPath string) DocumentKey {
	return DocumentKey{
		Filepath: stagedPath,
		Filename: path.Base(stagedPath),
	}
}

// String returns the staged path.
func (k DocumentKey) String() string {
	return k.Filepath
}

// Metadata holds the document-level derived fields.
// A nil pointer (or a nil Signatures slice) means "not derived yet".
type Metadata struct {
	// Title is the document title.
	Title *string

	// PrintDate is the printed or effective date of the document.
	PrintDate *string

	// Language is the primary language of the document.
	Language *string

	// Summary is a short free-text summary.
	Summary *string

	// Signatures holds only valid signatures, or nil when none were found.
	Signatures []Signature
}

// Equal reports whether two metadata sets carry identical values.
func (m Metadata) Equal(o Metadata) bool {
	return equalPtr(m.Title, o.Title) &&
		equalPtr(m.PrintDate, o.PrintDate) &&
		equalPtr(m.Language, o.Language) &&
		equalPtr(m.Summary, o.Summary) &&
		(m.Signatures == nil) == (o.Signatures == nil) &&
		slices.Equal(m.Signatures, o.Signatures)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Document is the document-level view of the canonical page.
type Document struct {
	DocumentKey

	// PageCount is the number of pages produced by the parser.
	PageCount int

	Metadata

	// SignaturesCheckedAt is set once signature extraction has completed,
	// including when it found no valid signatures.
	SignaturesCheckedAt *time.Time
}

// Page is one parsed page of a Document.
type Page struct {
	DocumentKey

	// PageIndex is 0-based and contiguous up to PageCount-1.
	PageIndex int

	// PageCount is copied from the Document for convenience.
	PageCount int

	// Content is the raw extracted page text.
	Content string

	Metadata

	// SignaturesCheckedAt is only meaningful on the canonical page.
	SignaturesCheckedAt *time.Time
}

// IsCanonical reports whether this is the canonical page of its Document.
func (p Page) IsCanonical() bool {
	return p.PageIndex == CanonicalPageIndex
}

// Document returns the document-level view of a canonical page.
func (p Page) Document() Document {
	return Document{
		DocumentKey:         p.DocumentKey,
		PageCount:           p.PageCount,
		Metadata:            p.Metadata,
		SignaturesCheckedAt: p.SignaturesCheckedAt,
	}
}

// Chunk is a bounded, overlapping slice of one Page prepared for search.
type Chunk struct {
	// ID is a deterministic identifier derived from the chunk identity.
	ID string

	DocumentKey

	// PageIndex is the source page.
	PageIndex int

	// ChunkIndex is the 0-based position of the chunk within its page.
	ChunkIndex int

	// Content is the composed searchable text.
	Content string

	// Title, PrintDate, Language and Summary are copies of page metadata.
	Title     *string
	PrintDate *string
	Language  *string
	Summary   *string

	// Header1 and Header2 are the nearest preceding # and ## headings.
	Header1 *string
	Header2 *string
}

// Segment is one piece of page content produced by a splitter.
type Segment struct {
	// Text is the segment content.
	Text string

	// Header1 is the nearest preceding level-1 heading, if any.
	Header1 *string

	// Header2 is the nearest preceding level-2 heading, if any.
	Header2 *string
}

// DocumentFilter restricts the Documents a run touches.
type DocumentFilter struct {
	// Folder is a glob matched against the filepath and each of its
	// parent folders. Empty matches everything.
	Folder string
}

// Validate reports a malformed Folder glob as ErrInvalidInput.
func (f DocumentFilter) Validate() error {
	if _, err := path.Match(f.Folder, ""); err != nil {
		return fmt.Errorf("%w: folder filter %q: %w", ErrInvalidInput, f.Folder, err)
	}
	return nil
}

// Matches reports whether the staged path falls under the filter.
func (f DocumentFilter) Matches(filepath string) bool {
	if f.Folder == "" {
		return true
	}
	if ok, _ := path.Match(f.Folder, filepath); ok {
		return true
	}
	for dir := path.Dir(filepath); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if ok, _ := path.Match(f.Folder, dir); ok {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
