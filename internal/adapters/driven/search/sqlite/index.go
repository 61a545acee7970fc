// Package sqlite implements the IndexPublisher port over a SQLite FTS5
// index kept in its own database file, separate from the document store.
//
// Publish swaps the whole chunk set inside one transaction, so searches
// see either the previous set or the new one. Chunk text is the only
// full-text column; the filterable attributes are plain columns matched
// with equality or case-insensitive substring tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.IndexPublisher = (*Index)(nil)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS published_chunks (
    seq         INTEGER PRIMARY KEY,
    id          TEXT NOT NULL UNIQUE,
    filepath    TEXT NOT NULL,
    filename    TEXT NOT NULL,
    page_index  INTEGER NOT NULL,
    chunk_index INTEGER NOT NULL,
    content     TEXT NOT NULL,
    title       TEXT,
    print_date  TEXT,
    language    TEXT,
    summary     TEXT,
    header_1    TEXT,
    header_2    TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS published_fts USING fts5(
    content, content='published_chunks', content_rowid='seq',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TABLE IF NOT EXISTS publish_state (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    published_at TEXT NOT NULL,
    chunks       INTEGER NOT NULL
);
`

// columns maps filterable attributes to their column.
var columns = map[string]string{
	domain.AttrTitle:     "title",
	domain.AttrFilename:  "filename",
	domain.AttrFilepath:  "filepath",
	domain.AttrLanguage:  "language",
	domain.AttrPrintDate: "print_date",
	domain.AttrSummary:   "summary",
	domain.AttrHeader1:   "header_1",
	domain.AttrHeader2:   "header_2",
	domain.AttrPageIndex: "page_index",
}

const chunkColumns = `c.id, c.filepath, c.filename, c.page_index, c.chunk_index, c.content,
	c.title, c.print_date, c.language, c.summary, c.header_1, c.header_2`

// Index is a full-text chunk index.
type Index struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// New opens (or creates) <dataDir>/<namespace>.index.db.
func New(dataDir, namespace string) (*Index, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidConfig)
	}
	if namespace == "" || strings.ContainsAny(namespace, `/\`) {
		return nil, fmt.Errorf("%w: namespace %q", domain.ErrInvalidConfig, namespace)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrIndexUnavailable, err)
	}

	path := filepath.Join(dataDir, namespace+".index.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening index: %w", domain.ErrIndexUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating index schema: %w", domain.ErrIndexUnavailable, err)
	}

	return &Index{db: db, path: path, now: time.Now}, nil
}

// Path returns the index database file path.
func (x *Index) Path() string {
	return x.path
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Publish replaces the published chunk set.
func (x *Index) Publish(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin publish: %w", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO published_fts(published_fts) VALUES('delete-all')`); err != nil {
		return fmt.Errorf("%w: clearing full-text index: %w", domain.ErrIndexUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM published_chunks`); err != nil {
		return fmt.Errorf("%w: clearing chunks: %w", domain.ErrIndexUnavailable, err)
	}

	insertChunk, err := tx.PrepareContext(ctx, `
		INSERT INTO published_chunks (id, filepath, filename, page_index, chunk_index, content,
			title, print_date, language, summary, header_1, header_2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	defer insertChunk.Close()

	insertText, err := tx.PrepareContext(ctx, `INSERT INTO published_fts(rowid, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	defer insertText.Close()

	for _, c := range chunks {
		res, err := insertChunk.ExecContext(ctx,
			c.ID, c.Filepath, c.Filename, c.PageIndex, c.ChunkIndex, c.Content,
			nullString(c.Title), nullString(c.PrintDate), nullString(c.Language),
			nullString(c.Summary), nullString(c.Header1), nullString(c.Header2),
		)
		if err != nil {
			return fmt.Errorf("%w: publishing chunk %s: %w", domain.ErrIndexUnavailable, c.ID, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		if _, err := insertText.ExecContext(ctx, rowid, c.Content); err != nil {
			return fmt.Errorf("%w: indexing chunk %s: %w", domain.ErrIndexUnavailable, c.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO publish_state (id, published_at, chunks) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET published_at = excluded.published_at, chunks = excluded.chunks`,
		x.now().UTC().Format(timeFormat), len(chunks))
	if err != nil {
		return fmt.Errorf("%w: recording publish state: %w", domain.ErrIndexUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit publish: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// State returns when the index was last published. A never-published
// index returns the zero state.
func (x *Index) State(ctx context.Context) (domain.PublishState, error) {
	var (
		at    string
		state domain.PublishState
	)
	err := x.db.QueryRowContext(ctx, `SELECT published_at, chunks FROM publish_state WHERE id = 1`).
		Scan(&at, &state.Chunks)
	if err == sql.ErrNoRows {
		return domain.PublishState{}, nil
	}
	if err != nil {
		return domain.PublishState{}, fmt.Errorf("%w: reading publish state: %w", domain.ErrIndexUnavailable, err)
	}
	state.PublishedAt, err = time.Parse(timeFormat, at)
	if err != nil {
		return domain.PublishState{}, fmt.Errorf("%w: parsing publish time: %w", domain.ErrIndexUnavailable, err)
	}
	return state, nil
}

// Search runs a full-text query with attribute filters. An empty text
// returns filtered chunks in document order.
func (x *Index) Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchHit, error) {
	where, args, err := filterClause(query.Filters)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = -1
	}

	var q string
	match := matchExpression(query.Text)
	if match != "" {
		q = `SELECT ` + chunkColumns + `, -bm25(published_fts)
			FROM published_fts
			JOIN published_chunks c ON c.seq = published_fts.rowid
			WHERE published_fts MATCH ?` + and(where) + `
			ORDER BY bm25(published_fts), c.filepath, c.filename, c.page_index, c.chunk_index
			LIMIT ?`
		args = append([]any{match}, args...)
	} else {
		q = `SELECT ` + chunkColumns + `, 0.0
			FROM published_chunks c
			WHERE 1 = 1` + and(where) + `
			ORDER BY c.filepath, c.filename, c.page_index, c.chunk_index
			LIMIT ?`
	}
	args = append(args, limit)

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var hit domain.SearchHit
		var title, printDate, language, summary, header1, header2 sql.NullString
		c := &hit.Chunk
		if err := rows.Scan(&c.ID, &c.Filepath, &c.Filename, &c.PageIndex, &c.ChunkIndex, &c.Content,
			&title, &printDate, &language, &summary, &header1, &header2, &hit.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning hit: %w", domain.ErrIndexUnavailable, err)
		}
		c.Title = stringPtr(title)
		c.PrintDate = stringPtr(printDate)
		c.Language = stringPtr(language)
		c.Summary = stringPtr(summary)
		c.Header1 = stringPtr(header1)
		c.Header2 = stringPtr(header2)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

// matchExpression quotes every term so user input is never parsed as
// FTS5 query syntax. Terms are combined with an implicit AND.
func matchExpression(text string) string {
	terms := strings.Fields(text)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// filterClause builds the AND-combined filter conditions.
func filterClause(filters []domain.SearchFilter) (string, []any, error) {
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		col, ok := columns[f.Attribute]
		if !ok {
			return "", nil, fmt.Errorf("%w: attribute %q is not filterable", domain.ErrInvalidInput, f.Attribute)
		}

		switch f.Op {
		case domain.FilterEquals:
			if col == "page_index" {
				n, err := strconv.Atoi(strings.TrimSpace(f.Value))
				if err != nil {
					return "", nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, f.Attribute)
				}
				conds = append(conds, "c.page_index = ?")
				args = append(args, n)
				continue
			}
			conds = append(conds, "c."+col+" = ?")
		case domain.FilterContains:
			conds = append(conds, "instr(lower(CAST(c."+col+" AS TEXT)), lower(?)) > 0")
		default:
			return "", nil, fmt.Errorf("%w: unknown filter op %q", domain.ErrInvalidInput, f.Op)
		}
		args = append(args, f.Value)
	}
	return strings.Join(conds, " AND "), args, nil
}

func and(where string) string {
	if where == "" {
		return ""
	}
	return " AND " + where
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
