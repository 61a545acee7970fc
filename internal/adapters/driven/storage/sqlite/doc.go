// Package sqlite provides a unified SQLite-based implementation of the
// storage port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It implements three store interfaces through a single
// database connection:
//
//   - PageStore: parsed pages and the derived document fields
//   - ChunkStore: chunk sets, swapped atomically per run
//   - RunStore: the pipeline run ledger
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files and
// is recorded in schema_migrations once applied. Besides the tables, the
// valid_signatures view exposes one row per stored signature of each
// canonical page.
//
// # Guarded writes
//
// Every enrichment write is a single UPDATE whose WHERE clause requires the
// target field to be NULL. A write that loses the guard affects no rows and
// is reported as not written, so overlapping runs converge.
//
// # Data Location
//
// The database lives at <data_dir>/<namespace>.db, so several independent
// corpora can share a data directory.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite's
// locking in WAL mode with a busy timeout.
package sqlite
