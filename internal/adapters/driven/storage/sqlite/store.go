package sqlite

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// DefaultNamespace is the database name used when none is configured.
const DefaultNamespace = "default"

// timeFormat is the encoding used for every timestamp column.
const timeFormat = time.RFC3339Nano

// Store is a unified SQLite-based storage that provides access to
// the page, chunk and run stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (or creates) <dataDir>/<namespace>.db and applies
// pending migrations.
func NewStore(dataDir, namespace string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidConfig)
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if strings.ContainsAny(namespace, `/\`) {
		return nil, fmt.Errorf("%w: namespace %q", domain.ErrInvalidConfig, namespace)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrStorageUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, namespace+".db")

	// WAL lets readers proceed while enrichment stages write.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStorageUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrStorageUnavailable, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStorageUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PageStore returns a PageStore interface backed by this store.
func (s *Store) PageStore() driven.PageStore {
	return &pageStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	currentVersion, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// nullString maps a nil pointer to SQL NULL.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr maps SQL NULL back to a nil pointer.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// nullTime encodes an optional timestamp.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

// timePtr decodes an optional timestamp.
func timePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

// encodeSignatures stores an empty list as NULL.
func encodeSignatures(sigs []domain.Signature) (sql.NullString, error) {
	if len(sigs) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(sigs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling signatures: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeSignatures(ns sql.NullString) ([]domain.Signature, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var sigs []domain.Signature
	if err := json.Unmarshal([]byte(ns.String), &sigs); err != nil {
		return nil, fmt.Errorf("unmarshalling signatures: %w", err)
	}
	if len(sigs) == 0 {
		return nil, nil
	}
	return sigs, nil
}

// isConstraintError reports a UNIQUE or PRIMARY KEY violation.
func isConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

// storageError wraps a database failure so callers can detect it.
func storageError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}
