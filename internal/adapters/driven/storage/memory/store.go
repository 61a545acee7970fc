// Package memory provides in-memory implementations of the storage ports.
// They share the guarded-write semantics of the sqlite store and are used
// by service tests and dry runs.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.PageStore  = (*Store)(nil)
	_ driven.ChunkStore = (*Store)(nil)
	_ driven.RunStore   = (*Store)(nil)
)

// Store is an in-memory page, chunk and run store.
type Store struct {
	mu     sync.RWMutex
	pages  map[domain.DocumentKey][]domain.Page
	chunks map[domain.DocumentKey][]domain.Chunk
	runs   []domain.RunReport
	now    func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		pages:  make(map[domain.DocumentKey][]domain.Page),
		chunks: make(map[domain.DocumentKey][]domain.Chunk),
		now:    time.Now,
	}
}

// SavePages creates every page of a new Document.
func (s *Store) SavePages(_ context.Context, pages []domain.Page) error {
	if len(pages) == 0 {
		return domain.ErrInvalidInput
	}
	key := pages[0].DocumentKey

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[key]; ok {
		return domain.ErrAlreadyExists
	}
	stored := make([]domain.Page, len(pages))
	for i, p := range pages {
		if p.DocumentKey != key {
			return domain.ErrInvalidInput
		}
		stored[i] = clonePage(p)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].PageIndex < stored[j].PageIndex })
	s.pages[key] = stored
	return nil
}

// HasDocument reports whether any page of the Document is stored.
func (s *Store) HasDocument(_ context.Context, key domain.DocumentKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[key]
	return ok, nil
}

// ListDocuments returns the canonical view of every matching Document.
func (s *Store) ListDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, key := range s.sortedKeys() {
		if !filter.Matches(key.Filepath) {
			continue
		}
		if canon := s.canonical(key); canon != nil {
			docs = append(docs, clonePage(*canon).Document())
		}
	}
	return docs, nil
}

// GetPages returns every page of a Document ordered by page index.
func (s *Store) GetPages(_ context.Context, key domain.DocumentKey) ([]domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages, ok := s.pages[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePages(pages), nil
}

// LeadingPages returns up to n pages from index 0.
func (s *Store) LeadingPages(_ context.Context, key domain.DocumentKey, n int) ([]domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages, ok := s.pages[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var out []domain.Page
	for _, p := range pages {
		if p.PageIndex < n {
			out = append(out, clonePage(p))
		}
	}
	return out, nil
}

// SetMetadata writes the metadata fields if the canonical title is null.
func (s *Store) SetMetadata(_ context.Context, key domain.DocumentKey, title, printDate, language *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	canon := s.canonical(key)
	if canon == nil {
		return false, domain.ErrNotFound
	}
	if canon.Title != nil {
		return false, nil
	}
	canon.Title, canon.PrintDate, canon.Language = title, printDate, language
	return true, nil
}

// SetSummary writes the summary if the canonical summary is null.
func (s *Store) SetSummary(_ context.Context, key domain.DocumentKey, summary string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	canon := s.canonical(key)
	if canon == nil {
		return false, domain.ErrNotFound
	}
	if canon.Summary != nil {
		return false, nil
	}
	canon.Summary = &summary
	return true, nil
}

// SetSignatures writes the validated list and marks the Document checked.
func (s *Store) SetSignatures(_ context.Context, key domain.DocumentKey, signatures []domain.Signature) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	canon := s.canonical(key)
	if canon == nil {
		return false, domain.ErrNotFound
	}
	if canon.Signatures != nil || canon.SignaturesCheckedAt != nil {
		return false, nil
	}
	if len(signatures) > 0 {
		canon.Signatures = slices.Clone(signatures)
	}
	now := s.now()
	canon.SignaturesCheckedAt = &now
	return true, nil
}

// Propagate copies non-null canonical fields to pages where they are null.
func (s *Store) Propagate(_ context.Context, key domain.DocumentKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, ok := s.pages[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	canon := s.canonical(key)
	if canon == nil || canon.Title == nil {
		return 0, nil
	}
	src := canon.Metadata

	changed := 0
	for i := range pages {
		p := &pages[i]
		if p.IsCanonical() {
			continue
		}
		before := p.Metadata
		p.Title = coalesce(p.Title, src.Title)
		p.PrintDate = coalesce(p.PrintDate, src.PrintDate)
		p.Language = coalesce(p.Language, src.Language)
		p.Summary = coalesce(p.Summary, src.Summary)
		if p.Signatures == nil && src.Signatures != nil {
			p.Signatures = slices.Clone(src.Signatures)
		}
		if !p.Metadata.Equal(before) {
			changed++
		}
	}
	return changed, nil
}

// ReplaceChunks swaps the chunks of the given Documents for the new set.
func (s *Store) ReplaceChunks(_ context.Context, keys []domain.DocumentKey, chunks []domain.Chunk) error {
	grouped := make(map[domain.DocumentKey][]domain.Chunk, len(keys))
	for _, c := range chunks {
		grouped[c.DocumentKey] = append(grouped[c.DocumentKey], c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.chunks, key)
	}
	for key, cs := range grouped {
		s.chunks[key] = cs
	}
	return nil
}

// GetChunks returns the chunks of a Document.
func (s *Store) GetChunks(_ context.Context, key domain.DocumentKey) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.chunks[key])
	sortChunks(out)
	return out, nil
}

// ListChunks returns every stored chunk in identity order.
func (s *Store) ListChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, cs := range s.chunks {
		out = append(out, cs...)
	}
	sortChunks(out)
	return out, nil
}

// CountChunks returns the number of chunks per Document.
func (s *Store) CountChunks(_ context.Context) (map[domain.DocumentKey]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.DocumentKey]int, len(s.chunks))
	for key, cs := range s.chunks {
		counts[key] = len(cs)
	}
	return counts, nil
}

// SaveRun records a finished run.
func (s *Store) SaveRun(_ context.Context, run domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Stages = slices.Clone(run.Stages)
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(_ context.Context, limit int) ([]domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RunReport, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}

// canonical returns a pointer to the stored canonical page. Callers hold the lock.
func (s *Store) canonical(key domain.DocumentKey) *domain.Page {
	pages := s.pages[key]
	for i := range pages {
		if pages[i].IsCanonical() {
			return &pages[i]
		}
	}
	return nil
}

func (s *Store) sortedKeys() []domain.DocumentKey {
	keys := make([]domain.DocumentKey, 0, len(s.pages))
	for key := range s.pages {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Filepath != keys[j].Filepath {
			return keys[i].Filepath < keys[j].Filepath
		}
		return keys[i].Filename < keys[j].Filename
	})
	return keys
}

func sortChunks(cs []domain.Chunk) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Filepath != b.Filepath {
			return a.Filepath < b.Filepath
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.PageIndex != b.PageIndex {
			return a.PageIndex < b.PageIndex
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}

func coalesce(dst, src *string) *string {
	if dst != nil {
		return dst
	}
	return src
}

func clonePage(p domain.Page) domain.Page {
	p.Signatures = slices.Clone(p.Signatures)
	return p
}

func clonePages(pages []domain.Page) []domain.Page {
	out := make([]domain.Page, len(pages))
	for i, p := range pages {
		out[i] = clonePage(p)
	}
	return out
}
