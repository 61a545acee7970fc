package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun records a finished run, replacing any earlier row with the same ID.
func (s *runStore) SaveRun(ctx context.Context, run domain.RunReport) error {
	stages := run.Stages
	if stages == nil {
		stages = []domain.StageReport{}
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("marshalling stages: %w", err)
	}

	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, filter, stages, started_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filter = excluded.filter,
			stages = excluded.stages,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			error = excluded.error
	`, run.ID, run.Filter, string(stagesJSON),
		run.StartedAt.UTC().Format(timeFormat), run.EndedAt.UTC().Format(timeFormat), runErr)
	if err != nil {
		return storageError("saving run", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
// A non-positive limit returns every run.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, filter, stages, started_at, ended_at, error
		FROM pipeline_runs
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageError("querying runs", err)
	}
	defer rows.Close()

	var runs []domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating runs", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (*domain.RunReport, error) {
	var run domain.RunReport
	var stagesJSON, startedAt, endedAt string
	var runErr sql.NullString
	if err := rows.Scan(&run.ID, &run.Filter, &stagesJSON, &startedAt, &endedAt, &runErr); err != nil {
		return nil, storageError("scanning run", err)
	}

	if err := json.Unmarshal([]byte(stagesJSON), &run.Stages); err != nil {
		return nil, fmt.Errorf("unmarshalling stages: %w", err)
	}
	var err error
	if run.StartedAt, err = time.Parse(timeFormat, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.EndedAt, err = time.Parse(timeFormat, endedAt); err != nil {
		return nil, fmt.Errorf("parsing ended_at: %w", err)
	}
	run.Error = runErr.String
	return &run, nil
}
