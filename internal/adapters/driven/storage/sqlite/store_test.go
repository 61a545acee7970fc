package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "cortexdocs-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir, "test")
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

var keyA = domain.DocumentKey{Filepath: "contracts/A.pdf", Filename: "A.pdf"}

// seedPages stores a Document with n pages of generated text.
func seedPages(t *testing.T, store *Store, key domain.DocumentKey, n int) {
	t.Helper()
	pages := make([]domain.Page, n)
	for i := range pages {
		pages[i] = domain.Page{
			DocumentKey: key,
			PageIndex:   i,
			PageCount:   n,
			Content:     fmt.Sprintf("page %d of %s", i, key.Filename),
		}
	}
	require.NoError(t, store.PageStore().SavePages(context.Background(), pages))
}

func strPtr(s string) *string { return &s }

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesNamespacedDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, "contracts")
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "contracts.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_DefaultNamespace(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, "")
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DefaultNamespace+".db"), store.Path())
}

func TestNewStore_RejectsInvalidInput(t *testing.T) {
	_, err := NewStore("", "test")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewStore(t.TempDir(), "a/b")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNewStore_MigrationsRecordedOnce(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, "test")
	require.NoError(t, err)
	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	require.NoError(t, store.Close())

	// Reopening must not re-run the initial migration.
	store, err = NewStore(dir, "test")
	require.NoError(t, err)
	defer store.Close()

	var rows int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&rows))
	assert.Equal(t, 1, rows)
}

// ==================== Page Store Tests ====================

func TestPageStore_SaveAndGetPages(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedPages(t, store, keyA, 3)

	pages, err := store.PageStore().GetPages(ctx, keyA)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i, p.PageIndex)
		assert.Equal(t, 3, p.PageCount)
		assert.Nil(t, p.Title)
		assert.Nil(t, p.Signatures)
		assert.Nil(t, p.SignaturesCheckedAt)
	}
	assert.Equal(t, "page 1 of A.pdf", pages[1].Content)
}

func TestPageStore_SavePagesRejectsExisting(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	seedPages(t, store, keyA, 2)

	err := store.PageStore().SavePages(context.Background(), []domain.Page{
		{DocumentKey: keyA, PageIndex: 0, PageCount: 1, Content: "again"},
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	pages, err := store.PageStore().GetPages(context.Background(), keyA)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestPageStore_SavePagesValidation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	assert.ErrorIs(t, store.PageStore().SavePages(ctx, nil), domain.ErrInvalidInput)

	other := domain.DocumentKey{Filepath: "B.pdf", Filename: "B.pdf"}
	err := store.PageStore().SavePages(ctx, []domain.Page{
		{DocumentKey: keyA, PageIndex: 0, PageCount: 2},
		{DocumentKey: other, PageIndex: 1, PageCount: 2},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPageStore_GetPagesNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.PageStore().GetPages(context.Background(), keyA)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_HasDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	ok, err := store.PageStore().HasDocument(ctx, keyA)
	require.NoError(t, err)
	assert.False(t, ok)

	seedPages(t, store, keyA, 1)

	ok, err = store.PageStore().HasDocument(ctx, keyA)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPageStore_ListDocumentsFilter(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedPages(t, store, keyA, 2)
	seedPages(t, store, domain.DocumentKey{Filepath: "invoices/2024/B.pdf", Filename: "B.pdf"}, 1)

	all, err := store.PageStore().ListDocuments(ctx, domain.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "contracts/A.pdf", all[0].Filepath)
	assert.Equal(t, 2, all[0].PageCount)

	invoices, err := store.PageStore().ListDocuments(ctx, domain.DocumentFilter{Folder: "invoices"})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "B.pdf", invoices[0].Filename)
}

func TestPageStore_LeadingPages(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedPages(t, store, keyA, 5)

	pages, err := store.PageStore().LeadingPages(ctx, keyA, 3)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 2, pages[2].PageIndex)

	pages, err = store.PageStore().LeadingPages(ctx, keyA, 10)
	require.NoError(t, err)
	assert.Len(t, pages, 5)

	pages, err = store.PageStore().LeadingPages(ctx, keyA, 0)
	require.NoError(t, err)
	assert.Empty(t, pages)

	_, err = store.PageStore().LeadingPages(ctx, domain.DocumentKey{Filepath: "x", Filename: "x"}, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_SetMetadataGuarded(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	pages := store.PageStore()

	seedPages(t, store, keyA, 2)

	written, err := pages.SetMetadata(ctx, keyA, strPtr("Master Agreement"), strPtr("2021-03-04"), strPtr("en"))
	require.NoError(t, err)
	assert.True(t, written)

	written, err = pages.SetMetadata(ctx, keyA, strPtr("Other"), nil, nil)
	require.NoError(t, err)
	assert.False(t, written)

	got, err := pages.GetPages(ctx, keyA)
	require.NoError(t, err)
	assert.Equal(t, "Master Agreement", domain.Deref(got[0].Title))
	assert.Equal(t, "2021-03-04", domain.Deref(got[0].PrintDate))
	assert.Equal(t, "en", domain.Deref(got[0].Language))
	assert.Nil(t, got[1].Title, "only the canonical page is written")

	_, err = pages.SetMetadata(ctx, domain.DocumentKey{Filepath: "x", Filename: "x"}, strPtr("t"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_SetSummaryGuarded(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	pages := store.PageStore()

	seedPages(t, store, keyA, 1)

	written, err := pages.SetSummary(ctx, keyA, "First summary.")
	require.NoError(t, err)
	assert.True(t, written)

	written, err = pages.SetSummary(ctx, keyA, "Second summary.")
	require.NoError(t, err)
	assert.False(t, written)

	got, err := pages.GetPages(ctx, keyA)
	require.NoError(t, err)
	assert.Equal(t, "First summary.", domain.Deref(got[0].Summary))
}

func TestPageStore_SetSignatures(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	pages := store.PageStore()

	checked := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return checked }

	seedPages(t, store, keyA, 1)
	sigs := []domain.Signature{{Name: "Jane Doe", Title: "CEO", Date: "2021-03-04"}}

	written, err := pages.SetSignatures(ctx, keyA, sigs)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = pages.SetSignatures(ctx, keyA, []domain.Signature{{Name: "X", Date: "Y"}})
	require.NoError(t, err)
	assert.False(t, written)

	got, err := pages.GetPages(ctx, keyA)
	require.NoError(t, err)
	assert.Equal(t, sigs, got[0].Signatures)
	require.NotNil(t, got[0].SignaturesCheckedAt)
	assert.True(t, checked.Equal(*got[0].SignaturesCheckedAt))
}

func TestPageStore_SetSignaturesEmptyMarksChecked(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	pages := store.PageStore()

	seedPages(t, store, keyA, 1)

	written, err := pages.SetSignatures(ctx, keyA, nil)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := pages.GetPages(ctx, keyA)
	require.NoError(t, err)
	assert.Nil(t, got[0].Signatures, "an empty list is stored as null")
	assert.NotNil(t, got[0].SignaturesCheckedAt)

	written, err = pages.SetSignatures(ctx, keyA, []domain.Signature{{Name: "Late", Date: "2020"}})
	require.NoError(t, err)
	assert.False(t, written, "a checked document is not extracted again")
}

func TestPageStore_Propagate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	pages := store.PageStore()

	seedPages(t, store, keyA, 3)
	sigs := []domain.Signature{{Name: "Jane Doe", Title: "None", Date: "2021-03-04"}}

	_, err := pages.SetMetadata(ctx, keyA, strPtr("Title"), nil, strPtr("en"))
	require.NoError(t, err)
	_, err = pages.SetSummary(ctx, keyA, "Summary.")
	require.NoError(t, err)
	_, err = pages.SetSignatures(ctx, keyA, sigs)
	require.NoError(t, err)

	changed, err := pages.Propagate(ctx, keyA)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	got, err := pages.GetPages(ctx, keyA)
	require.NoError(t, err)
	for _, p := range got {
		assert.Equal(t, got[0].Metadata, p.Metadata, "page %d", p.PageIndex)
	}
	assert.Nil(t, got[2].SignaturesCheckedAt, "the checked marker stays on the canonical page")

	changed, err = pages.Propagate(ctx, keyA)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestPageStore_PropagateWaitsForTitle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	pages := store.PageStore()

	seedPages(t, store, keyA, 2)
	_, err := pages.SetSummary(ctx, keyA, "Summary.")
	require.NoError(t, err)

	changed, err := pages.Propagate(ctx, keyA)
	require.NoError(t, err)
	assert.Zero(t, changed)

	got, err := pages.GetPages(ctx, keyA)
	require.NoError(t, err)
	assert.Nil(t, got[1].Summary)
}

func TestPageStore_PropagateKeepsExistingValues(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.PageStore().SavePages(ctx, []domain.Page{
		{DocumentKey: keyA, PageIndex: 0, PageCount: 2},
		{DocumentKey: keyA, PageIndex: 1, PageCount: 2, Metadata: domain.Metadata{Language: strPtr("fr")}},
	}))
	_, err := store.PageStore().SetMetadata(ctx, keyA, strPtr("Title"), nil, strPtr("en"))
	require.NoError(t, err)

	changed, err := store.PageStore().Propagate(ctx, keyA)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := store.PageStore().GetPages(ctx, keyA)
	require.NoError(t, err)
	assert.Equal(t, "Title", domain.Deref(got[1].Title))
	assert.Equal(t, "fr", domain.Deref(got[1].Language))
}

func TestPageStore_PropagateNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.PageStore().Propagate(context.Background(), keyA)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageStore_ConcurrentGuardedWrites(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedPages(t, store, keyA, 1)

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			written, err := store.PageStore().SetSummary(ctx, keyA, fmt.Sprintf("summary %d", i))
			assert.NoError(t, err)
			results <- written
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for written := range results {
		if written {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestValidSignaturesView(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedPages(t, store, keyA, 2)
	_, err := store.PageStore().SetMetadata(ctx, keyA, strPtr("Agreement"), nil, nil)
	require.NoError(t, err)
	_, err = store.PageStore().SetSignatures(ctx, keyA, []domain.Signature{
		{Name: "Jane Doe", Title: "CEO", Date: "2021-03-04"},
		{Name: "John Roe", Title: "None", Date: "2021-03-05"},
	})
	require.NoError(t, err)
	_, err = store.PageStore().Propagate(ctx, keyA)
	require.NoError(t, err)

	rows, err := store.db.QueryContext(ctx,
		"SELECT filename, document_title, name, title, date FROM valid_signatures ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var filename, docTitle, name, title, date string
		require.NoError(t, rows.Scan(&filename, &docTitle, &name, &title, &date))
		got = append(got, fmt.Sprintf("%s|%s|%s|%s|%s", filename, docTitle, name, title, date))
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{
		"A.pdf|Agreement|Jane Doe|CEO|2021-03-04",
		"A.pdf|Agreement|John Roe|None|2021-03-05",
	}, got, "propagated copies are not counted twice")
}

// ==================== Chunk Store Tests ====================

func testChunk(key domain.DocumentKey, page, idx int, content string) domain.Chunk {
	return domain.Chunk{
		ID:          fmt.Sprintf("%s-%d-%d", key.Filename, page, idx),
		DocumentKey: key,
		PageIndex:   page,
		ChunkIndex:  idx,
		Content:     content,
		Title:       strPtr("Title"),
		Header1:     strPtr("Intro"),
	}
}

func TestChunkStore_ReplaceAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chunks := store.ChunkStore()

	err := chunks.ReplaceChunks(ctx, []domain.DocumentKey{keyA}, []domain.Chunk{
		testChunk(keyA, 1, 0, "b"),
		testChunk(keyA, 0, 1, "a2"),
		testChunk(keyA, 0, 0, "a1"),
	})
	require.NoError(t, err)

	got, err := chunks.GetChunks(ctx, keyA)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a1", got[0].Content)
	assert.Equal(t, "a2", got[1].Content)
	assert.Equal(t, "b", got[2].Content)
	assert.Equal(t, "Title", domain.Deref(got[0].Title))
	assert.Equal(t, "Intro", domain.Deref(got[0].Header1))
	assert.Nil(t, got[0].Header2)
}

func TestChunkStore_ReplaceScopedToKeys(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chunks := store.ChunkStore()
	keyB := domain.DocumentKey{Filepath: "B.pdf", Filename: "B.pdf"}

	require.NoError(t, chunks.ReplaceChunks(ctx, []domain.DocumentKey{keyA, keyB}, []domain.Chunk{
		testChunk(keyA, 0, 0, "a"),
		testChunk(keyA, 0, 1, "a"),
		testChunk(keyB, 0, 0, "b"),
	}))

	// Regenerating A leaves B untouched.
	require.NoError(t, chunks.ReplaceChunks(ctx, []domain.DocumentKey{keyA}, []domain.Chunk{
		testChunk(keyA, 0, 0, "a-new"),
	}))

	counts, err := chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.DocumentKey]int{keyA: 1, keyB: 1}, counts)

	all, err := chunks.ListChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a-new", all[0].Content)
	assert.Equal(t, "b", all[1].Content)
}

func TestChunkStore_ReplaceIsAtomic(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.ReplaceChunks(ctx, []domain.DocumentKey{keyA}, []domain.Chunk{
		testChunk(keyA, 0, 0, "old"),
	}))

	// Duplicate IDs fail the insert; the old set must survive.
	dup := testChunk(keyA, 0, 0, "new")
	err := chunks.ReplaceChunks(ctx, []domain.DocumentKey{keyA}, []domain.Chunk{dup, dup})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	got, err := chunks.GetChunks(ctx, keyA)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Content)
}

func TestChunkStore_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	got, err := store.ChunkStore().GetChunks(ctx, keyA)
	require.NoError(t, err)
	assert.Empty(t, got)

	counts, err := store.ChunkStore().CountChunks(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

// ==================== Run Store Tests ====================

func TestRunStore_SaveAndList(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	runs := store.RunStore()

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, runs.SaveRun(ctx, domain.RunReport{
			ID:        fmt.Sprintf("run-%d", i),
			Filter:    "contracts",
			StartedAt: start.Add(time.Duration(i) * time.Hour),
			EndedAt:   start.Add(time.Duration(i)*time.Hour + time.Minute),
			Stages: []domain.StageReport{
				{Stage: domain.StageMetadata, Selected: 2, Processed: 1, Failed: 1, Duration: time.Second},
			},
		}))
	}

	got, err := runs.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-2", got[0].ID)
	assert.Equal(t, "run-1", got[1].ID)
	assert.Equal(t, "contracts", got[0].Filter)
	assert.True(t, start.Add(2*time.Hour).Equal(got[0].StartedAt))

	sr, ok := got[0].Stage(domain.StageMetadata)
	require.True(t, ok)
	assert.Equal(t, 1, sr.Failed)
	assert.Equal(t, time.Second, sr.Duration)

	all, err := runs.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunStore_RecordsError(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.RunStore().SaveRun(ctx, domain.RunReport{
		ID: "failed", StartedAt: now, EndedAt: now, Error: "storage unavailable",
	}))

	got, err := store.RunStore().ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "storage unavailable", got[0].Error)
	assert.Empty(t, got[0].Stages)
}
