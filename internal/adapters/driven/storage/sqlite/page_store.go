package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// pageStore implements driven.PageStore.
type pageStore struct {
	store *Store
}

var _ driven.PageStore = (*pageStore)(nil)

const pageColumns = `filepath, filename, page_index, page_count, content,
	title, print_date, language, summary, signatures, signatures_checked_at`

// SavePages creates every page of a new Document in one transaction.
func (s *pageStore) SavePages(ctx context.Context, pages []domain.Page) error {
	if len(pages) == 0 {
		return fmt.Errorf("%w: no pages", domain.ErrInvalidInput)
	}
	key := pages[0].DocumentKey
	for _, p := range pages {
		if p.DocumentKey != key {
			return fmt.Errorf("%w: pages span more than one document", domain.ErrInvalidInput)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Pages of a Document are only ever written together, so the primary
	// key of the first page decides whether the Document already exists.
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageError("preparing statement", err)
	}
	defer stmt.Close()

	for _, p := range pages {
		sigs, err := encodeSignatures(p.Signatures)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, p.Filepath, p.Filename, p.PageIndex, p.PageCount, p.Content,
			nullString(p.Title), nullString(p.PrintDate), nullString(p.Language), nullString(p.Summary),
			sigs, nullTime(p.SignaturesCheckedAt))
		if isConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		if err != nil {
			return storageError("saving page", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return storageError("committing transaction", err)
	}
	return nil
}

// HasDocument reports whether any page of the Document is stored.
func (s *pageStore) HasDocument(ctx context.Context, key domain.DocumentKey) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pages WHERE filepath = ? AND filename = ?",
		key.Filepath, key.Filename).Scan(&n)
	if err != nil {
		return false, storageError("checking document", err)
	}
	return n > 0, nil
}

// ListDocuments returns the canonical view of every matching Document.
func (s *pageStore) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages WHERE page_index = 0
		ORDER BY filepath, filename
	`)
	if err != nil {
		return nil, storageError("querying documents", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(p.Filepath) {
			docs = append(docs, p.Document())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating documents", err)
	}
	return docs, nil
}

// GetPages returns every page of a Document ordered by page index.
func (s *pageStore) GetPages(ctx context.Context, key domain.DocumentKey) ([]domain.Page, error) {
	return s.queryPages(ctx, key, -1)
}

// LeadingPages returns up to n pages from index 0.
func (s *pageStore) LeadingPages(ctx context.Context, key domain.DocumentKey, n int) ([]domain.Page, error) {
	pages, err := s.queryPages(ctx, key, n)
	if err == nil || n > 0 {
		return pages, err
	}
	// n <= 0 selects nothing; still report unknown documents.
	ok, herr := s.HasDocument(ctx, key)
	if herr != nil {
		return nil, herr
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return nil, nil
}

// queryPages loads pages below limit, or all pages when limit is negative.
func (s *pageStore) queryPages(ctx context.Context, key domain.DocumentKey, limit int) ([]domain.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE filepath = ? AND filename = ?`
	args := []any{key.Filepath, key.Filename}
	if limit >= 0 {
		query += " AND page_index < ?"
		args = append(args, limit)
	}
	query += " ORDER BY page_index"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("querying pages", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating pages", err)
	}
	if len(pages) == 0 {
		return nil, domain.ErrNotFound
	}
	return pages, nil
}

// SetMetadata writes the metadata fields if the canonical title is null.
func (s *pageStore) SetMetadata(
	ctx context.Context, key domain.DocumentKey, title, printDate, language *string,
) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pages SET title = ?, print_date = ?, language = ?
		WHERE filepath = ? AND filename = ? AND page_index = 0 AND title IS NULL
	`, nullString(title), nullString(printDate), nullString(language), key.Filepath, key.Filename)
	return s.guarded(ctx, key, res, err, "setting metadata")
}

// SetSummary writes the summary if the canonical summary is null.
func (s *pageStore) SetSummary(ctx context.Context, key domain.DocumentKey, summary string) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pages SET summary = ?
		WHERE filepath = ? AND filename = ? AND page_index = 0 AND summary IS NULL
	`, summary, key.Filepath, key.Filename)
	return s.guarded(ctx, key, res, err, "setting summary")
}

// SetSignatures writes the validated list and marks the Document checked.
func (s *pageStore) SetSignatures(
	ctx context.Context, key domain.DocumentKey, signatures []domain.Signature,
) (bool, error) {
	sigs, err := encodeSignatures(signatures)
	if err != nil {
		return false, err
	}
	checkedAt := s.store.now()
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pages SET signatures = ?, signatures_checked_at = ?
		WHERE filepath = ? AND filename = ? AND page_index = 0
			AND signatures IS NULL AND signatures_checked_at IS NULL
	`, sigs, nullTime(&checkedAt), key.Filepath, key.Filename)
	return s.guarded(ctx, key, res, err, "setting signatures")
}

// Propagate copies non-null canonical fields to pages where they are null.
// Nothing happens until the canonical title is set.
func (s *pageStore) Propagate(ctx context.Context, key domain.DocumentKey) (int, error) {
	ok, err := s.HasDocument(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrNotFound
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pages SET
			title      = COALESCE(pages.title, c.title),
			print_date = COALESCE(pages.print_date, c.print_date),
			language   = COALESCE(pages.language, c.language),
			summary    = COALESCE(pages.summary, c.summary),
			signatures = COALESCE(pages.signatures, c.signatures)
		FROM (
			SELECT title, print_date, language, summary, signatures
			FROM pages
			WHERE filepath = ? AND filename = ? AND page_index = 0 AND title IS NOT NULL
		) AS c
		WHERE pages.filepath = ? AND pages.filename = ? AND pages.page_index <> 0
			AND (
				(pages.title IS NULL AND c.title IS NOT NULL) OR
				(pages.print_date IS NULL AND c.print_date IS NOT NULL) OR
				(pages.language IS NULL AND c.language IS NOT NULL) OR
				(pages.summary IS NULL AND c.summary IS NOT NULL) OR
				(pages.signatures IS NULL AND c.signatures IS NOT NULL)
			)
	`, key.Filepath, key.Filename, key.Filepath, key.Filename)
	if err != nil {
		return 0, storageError("propagating", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("propagating", err)
	}
	return int(n), nil
}

// guarded turns the result of a null-guarded UPDATE into (written, error),
// distinguishing a lost guard from an unknown Document.
func (s *pageStore) guarded(
	ctx context.Context, key domain.DocumentKey, res sql.Result, err error, op string,
) (bool, error) {
	if err != nil {
		return false, storageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError(op, err)
	}
	if n > 0 {
		return true, nil
	}
	ok, err := s.HasDocument(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func scanPage(rows *sql.Rows) (*domain.Page, error) {
	var p domain.Page
	var title, printDate, language, summary, sigs, checkedAt sql.NullString
	if err := rows.Scan(&p.Filepath, &p.Filename, &p.PageIndex, &p.PageCount, &p.Content,
		&title, &printDate, &language, &summary, &sigs, &checkedAt); err != nil {
		return nil, storageError("scanning page", err)
	}

	p.Title = stringPtr(title)
	p.PrintDate = stringPtr(printDate)
	p.Language = stringPtr(language)
	p.Summary = stringPtr(summary)

	var err error
	if p.Signatures, err = decodeSignatures(sigs); err != nil {
		return nil, err
	}
	if p.SignaturesCheckedAt, err = timePtr(checkedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
