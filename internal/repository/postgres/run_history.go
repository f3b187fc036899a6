package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

const createRunHistory = `
CREATE TABLE IF NOT EXISTS dispatch_runs (
	run_id           TEXT PRIMARY KEY,
	state            TEXT NOT NULL,
	contacts_path    TEXT NOT NULL,
	total            INTEGER NOT NULL,
	processed        INTEGER NOT NULL,
	delivered        INTEGER NOT NULL,
	failures         JSONB NOT NULL DEFAULT '[]',
	partition_errors INTEGER NOT NULL DEFAULT 0,
	ledgers          TEXT[] NOT NULL DEFAULT '{}',
	error            TEXT NOT NULL DEFAULT '',
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL,
	duration_ms      BIGINT NOT NULL
)`

// RunHistoryRepo stores one summary row per finished dispatch run.
type RunHistoryRepo struct{ db *sql.DB }

// NewRunHistoryRepo creates a Postgres-backed run history.
func NewRunHistoryRepo(db *sql.DB) *RunHistoryRepo { return &RunHistoryRepo{db: db} }

// EnsureSchema creates the dispatch_runs table if it does not exist.
func (r *RunHistoryRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRunHistory); err != nil {
		return fmt.Errorf("create dispatch_runs: %w", err)
	}
	return nil
}

func (r *RunHistoryRepo) Record(ctx context.Context, s *domain.RunSummary) error {
	failures, err := json.Marshal(s.Failures)
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}
	if s.Failures == nil {
		failures = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dispatch_runs (run_id, state, contacts_path, total, processed, delivered,
			failures, partition_errors, ledgers, error, started_at, finished_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (run_id) DO UPDATE SET state = $2, processed = $5, delivered = $6,
			failures = $7, partition_errors = $8, error = $10, finished_at = $12, duration_ms = $13
	`, s.RunID, string(s.State), s.ContactsPath, s.Total, s.Processed, s.Delivered,
		failures, s.PartitionErrors, pq.Array(s.Ledgers), s.Error,
		s.StartedAt, s.FinishedAt, s.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record run %s: %w", s.RunID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunHistoryRepo) Recent(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, state, contacts_path, total, processed, delivered, failures,
			partition_errors, ledgers, error, started_at, finished_at, duration_ms
		FROM dispatch_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var (
			s          domain.RunSummary
			state      string
			failures   []byte
			durationMS int64
		)
		if err := rows.Scan(&s.RunID, &state, &s.ContactsPath, &s.Total, &s.Processed, &s.Delivered,
			&failures, &s.PartitionErrors, pq.Array(&s.Ledgers), &s.Error,
			&s.StartedAt, &s.FinishedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal(failures, &s.Failures); err != nil {
			return nil, fmt.Errorf("decode failures of %s: %w", s.RunID, err)
		}
		s.State = domain.RunState(state)
		s.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}
