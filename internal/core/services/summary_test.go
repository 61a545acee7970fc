package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/storage/memory"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

func newSummaryService(store *memory.Store, sum *mockSummariser) *SummaryService {
	return NewSummaryService(store, sum, domain.DefaultLookbackPages, domain.DefaultSummaryChars, 2)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"longer", "abcdef", 3, "abc"},
		{"multibyte", "héllo wörld", 7, "héllo w"},
		{"zero keeps all", "abc", 0, "abc"},
		{"empty", "", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSummaryService_TruncatesLeadingPages(t *testing.T) {
	store := memory.NewStore()
	sum := &mockSummariser{reply: "  A short summary.  "}
	key := seedDocument(store, "A.pdf", 12, func(int) string { return strings.Repeat("é", 1000) })

	report, err := newSummaryService(store, sum).Run(context.Background(), domain.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	require.Equal(t, 1, sum.calls())
	body := strings.TrimPrefix(sum.prompts[0], domain.DefaultSummaryInstruction+"\n\n")
	assert.Equal(t, domain.DefaultSummaryChars, utf8.RuneCountInString(body))

	pages, err := store.GetPages(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", *pages[0].Summary)
}

func TestSummaryService_RerunMakesNoCall(t *testing.T) {
	store := memory.NewStore()
	sum := &mockSummariser{reply: "Existing."}
	seedDocument(store, "A.pdf", 2, pageText)
	svc := newSummaryService(store, sum)
	ctx := context.Background()

	_, err := svc.Run(ctx, domain.DocumentFilter{})
	require.NoError(t, err)
	report, err := svc.Run(ctx, domain.DocumentFilter{})
	require.NoError(t, err)

	assert.Zero(t, report.Selected)
	assert.Equal(t, 1, sum.calls())
}

func TestSummaryService_IndependentOfMetadata(t *testing.T) {
	store := memory.NewStore()
	sum := &mockSummariser{reply: "Summary."}
	seedDocument(store, "A.pdf", 1, pageText)

	report, err := newSummaryService(store, sum).Run(context.Background(), domain.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed, "summaries do not wait for a title")
}

func TestSummaryService_Failures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"call error", "", errors.New("rate limited")},
		{"empty reply", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			sum := &mockSummariser{reply: tt.reply, err: tt.err}
			seedDocument(store, "A.pdf", 1, pageText)

			report, err := newSummaryService(store, sum).Run(context.Background(), domain.DocumentFilter{})
			require.NoError(t, err)
			assert.Equal(t, 1, report.Failed)

			docs, err := store.ListDocuments(context.Background(), domain.DocumentFilter{})
			require.NoError(t, err)
			assert.Nil(t, docs[0].Summary)
		})
	}
}

func TestSummaryService_BlankDocumentSkipped(t *testing.T) {
	store := memory.NewStore()
	sum := &mockSummariser{reply: "x"}
	seedDocument(store, "scan.pdf", 1, func(int) string { return " \n " })

	report, err := newSummaryService(store, sum).Run(context.Background(), domain.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, sum.calls())
}

func TestSummaryService_CustomInstruction(t *testing.T) {
	store := memory.NewStore()
	sum := &mockSummariser{reply: "Résumé."}
	seedDocument(store, "A.pdf", 1, func(int) string { return "Body text." })

	svc := NewSummaryService(store, sum, 1, 100, 1, WithSummaryInstruction("  Résume en français.  "))
	_, err := svc.Run(context.Background(), domain.DocumentFilter{})
	require.NoError(t, err)

	require.Equal(t, 1, sum.calls())
	assert.Equal(t, "Résume en français.\n\nBody text.", sum.prompts[0])
}

func TestWithSummaryInstruction_BlankKeepsDefault(t *testing.T) {
	svc := NewSummaryService(memory.NewStore(), &mockSummariser{}, 1, 1, 1, WithSummaryInstruction(" "))
	assert.Equal(t, domain.DefaultSummaryInstruction, svc.instruction)
}
