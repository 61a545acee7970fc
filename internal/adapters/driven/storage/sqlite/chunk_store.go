package sqlite

import (
	"context"
	"database/sql"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = `id, filepath, filename, page_index, chunk_index, content,
	title, print_date, language, summary, header_1, header_2`

const chunkOrder = ` ORDER BY filepath, filename, page_index, chunk_index`

// ReplaceChunks deletes the chunks of the given Documents and inserts the
// new set in a single transaction, so readers never see a partial swap.
func (s *chunkStore) ReplaceChunks(ctx context.Context, keys []domain.DocumentKey, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE filepath = ? AND filename = ?")
	if err != nil {
		return storageError("preparing delete", err)
	}
	defer del.Close()

	for _, key := range keys {
		if _, err := del.ExecContext(ctx, key.Filepath, key.Filename); err != nil {
			return storageError("deleting chunks", err)
		}
	}

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageError("preparing insert", err)
	}
	defer ins.Close()

	for _, c := range chunks {
		if _, err := ins.ExecContext(ctx, c.ID, c.Filepath, c.Filename, c.PageIndex, c.ChunkIndex, c.Content,
			nullString(c.Title), nullString(c.PrintDate), nullString(c.Language), nullString(c.Summary),
			nullString(c.Header1), nullString(c.Header2)); err != nil {
			return storageError("saving chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageError("committing transaction", err)
	}
	return nil
}

// GetChunks returns the chunks of a Document.
func (s *chunkStore) GetChunks(ctx context.Context, key domain.DocumentKey) ([]domain.Chunk, error) {
	return s.query(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE filepath = ? AND filename = ?`+chunkOrder,
		key.Filepath, key.Filename)
}

// ListChunks returns every stored chunk in identity order.
func (s *chunkStore) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	return s.query(ctx, `SELECT `+chunkColumns+` FROM chunks`+chunkOrder)
}

// CountChunks returns the number of chunks per Document.
func (s *chunkStore) CountChunks(ctx context.Context) (map[domain.DocumentKey]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT filepath, filename, COUNT(*) FROM chunks GROUP BY filepath, filename")
	if err != nil {
		return nil, storageError("counting chunks", err)
	}
	defer rows.Close()

	counts := make(map[domain.DocumentKey]int)
	for rows.Next() {
		var key domain.DocumentKey
		var n int
		if err := rows.Scan(&key.Filepath, &key.Filename, &n); err != nil {
			return nil, storageError("scanning chunk count", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating chunk counts", err)
	}
	return counts, nil
}

func (s *chunkStore) query(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("querying chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating chunks", err)
	}
	return chunks, nil
}

func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var c domain.Chunk
	var title, printDate, language, summary, h1, h2 sql.NullString
	if err := rows.Scan(&c.ID, &c.Filepath, &c.Filename, &c.PageIndex, &c.ChunkIndex, &c.Content,
		&title, &printDate, &language, &summary, &h1, &h2); err != nil {
		return nil, storageError("scanning chunk", err)
	}
	c.Title = stringPtr(title)
	c.PrintDate = stringPtr(printDate)
	c.Language = stringPtr(language)
	c.Summary = stringPtr(summary)
	c.Header1 = stringPtr(h1)
	c.Header2 = stringPtr(h2)
	return &c, nil
}
