package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/storage/memory"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockExtractor implements driven.Extractor for testing.
type mockExtractor struct {
	mu        sync.Mutex
	byPath    map[string]*driven.ExtractResult
	textRes   *driven.ExtractResult
	err       error
	fileCalls []string
	textCalls []string
	schemas   []driven.Schema
}

func newMockExtractor() *mockExtractor {
	return &mockExtractor{byPath: make(map[string]*driven.ExtractResult)}
}

func (m *mockExtractor) ExtractFile(_ context.Context, path string, schema driven.Schema) (*driven.ExtractResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileCalls = append(m.fileCalls, path)
	m.schemas = append(m.schemas, schema)
	if m.err != nil {
		return nil, m.err
	}
	return m.byPath[path], nil
}

func (m *mockExtractor) ExtractText(_ context.Context, text string, schema driven.Schema) (*driven.ExtractResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls = append(m.textCalls, text)
	m.schemas = append(m.schemas, schema)
	if m.err != nil {
		return nil, m.err
	}
	return m.textRes, nil
}

func (m *mockExtractor) ModelName() string { return "mock-extractor" }
func (m *mockExtractor) Close() error      { return nil }

func (m *mockExtractor) calls() (file, text int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fileCalls), len(m.textCalls)
}

// mockSummariser implements driven.Summariser for testing.
type mockSummariser struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (m *mockSummariser) Summarise(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockSummariser) ModelName() string { return "mock-summariser" }
func (m *mockSummariser) Close() error      { return nil }

func (m *mockSummariser) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPublisher implements driven.IndexPublisher for testing.
type mockPublisher struct {
	mu        sync.Mutex
	published [][]domain.Chunk
	state     domain.PublishState
	hits      []domain.SearchHit
	queries   []domain.SearchQuery
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, chunks)
	m.state = domain.PublishState{PublishedAt: time.Now(), Chunks: len(chunks)}
	return nil
}

func (m *mockPublisher) Search(_ context.Context, q domain.SearchQuery) ([]domain.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return m.hits, m.err
}

func (m *mockPublisher) State(_ context.Context) (domain.PublishState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *mockPublisher) Close() error { return nil }

// mockParser implements driven.Parser for testing.
type mockParser struct {
	results map[string]*driven.ParseResult
	err     error
}

func (m *mockParser) Parse(_ context.Context, path string, _ domain.ParseMode) (*driven.ParseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	res, ok := m.results[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, path)
	}
	return res, nil
}

func (m *mockParser) SupportedExtensions() []string { return []string{".pdf"} }

// seedDocument stores a Document with n pages of the given content.
func seedDocument(store *memory.Store, path string, n int, content func(i int) string) domain.DocumentKey {
	key := domain.NewDocumentKey(path)
	pages := make([]domain.Page, n)
	for i := range pages {
		pages[i] = domain.Page{
			DocumentKey: key,
			PageIndex:   i,
			PageCount:   n,
			Content:     content(i),
		}
	}
	if err := store.SavePages(context.Background(), pages); err != nil {
		panic(err)
	}
	return key
}

func pageText(i int) string { return fmt.Sprintf("Text of page %d.", i) }

func metadataResult(title, date, lang string) *driven.ExtractResult {
	return &driven.ExtractResult{Response: map[string]any{
		FieldTitle:     title,
		FieldPrintDate: date,
		FieldLanguage:  lang,
	}}
}

func signatureResult(raw ...string) *driven.ExtractResult {
	items := make([]any, len(raw))
	for i, r := range raw {
		items[i] = r
	}
	return &driven.ExtractResult{Response: map[string]any{FieldSignatures: items}}
}

const testStaging = "/staging"
