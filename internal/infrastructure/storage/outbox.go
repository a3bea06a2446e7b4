package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"steelloop/internal/orchestrator"
)

var _ orchestrator.Store = (*Store)(nil)

const (
	eventPending    = "pending"
	eventClaimed    = "claimed"
	eventDispatched = "dispatched"
)

// AppendEvent stores an event; an id already present is ignored.
func (s *Store) AppendEvent(ctx context.Context, event orchestrator.Event) error {
	created := event.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.exec(ctx, sq.Insert("events").
		Columns("id", "name", "payload", "status", "created_at").
		Values(event.ID, event.Name, string(event.Data), eventPending, stamp(created)).
		Suffix("ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ClaimEvents atomically marks the oldest pending events claimed.
func (s *Store) ClaimEvents(ctx context.Context, limit int, at time.Time) ([]orchestrator.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.query(ctx, sq.Update("events").
		Set("status", eventClaimed).
		Set("claimed_at", stamp(at)).
		Where(sq.Expr("id IN (SELECT id FROM events WHERE status = ? ORDER BY created_at, rowid LIMIT ?)", eventPending, limit)).
		Suffix("RETURNING id, name, payload, created_at"))
	if err != nil {
		return nil, fmt.Errorf("claim events: %w", err)
	}
	events, err := collect(rows, func(row rowScanner) (orchestrator.Event, error) {
		var (
			event            orchestrator.Event
			payload, created string
		)
		if err := row.Scan(&event.ID, &event.Name, &payload, &created); err != nil {
			return orchestrator.Event{}, err
		}
		event.Data = []byte(payload)
		event.CreatedAt = parseTime(created)
		return event, nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim events: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

// CompleteEvent marks an event delivered.
func (s *Store) CompleteEvent(ctx context.Context, id string) error {
	_, err := s.exec(ctx, sq.Update("events").
		Set("status", eventDispatched).
		Set("dispatched_at", now()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("complete event: %w", err)
	}
	return nil
}

// ReleaseStaleClaims returns events claimed before cutoff to pending.
func (s *Store) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, sq.Update("events").
		Set("status", eventPending).
		Set("claimed_at", nil).
		Where(sq.And{sq.Eq{"status": eventClaimed}, sq.Lt{"claimed_at": stamp(cutoff)}}))
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	return res.RowsAffected()
}

// PendingEvents counts events waiting for delivery.
func (s *Store) PendingEvents(ctx context.Context) (int, error) {
	row, err := s.queryRow(ctx, sq.Select("COUNT(1)").From("events").Where(sq.Eq{"status": eventPending}))
	if err != nil {
		return 0, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending events: %w", err)
	}
	return count, nil
}

// LoadStep returns the memoized output of a step.
func (s *Store) LoadStep(ctx context.Context, runID, step string) ([]byte, bool, error) {
	row, err := s.queryRow(ctx, sq.Select("output").From("step_results").Where(sq.Eq{"run_id": runID, "step": step}))
	if err != nil {
		return nil, false, err
	}
	var output string
	if err := row.Scan(&output); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load step: %w", err)
	}
	return []byte(output), true, nil
}

// SaveStep memoizes a step output.
func (s *Store) SaveStep(ctx context.Context, runID, step string, output []byte) error {
	_, err := s.exec(ctx, sq.Insert("step_results").
		Columns("run_id", "step", "output", "created_at").
		Values(runID, step, string(output), now()).
		Suffix("ON CONFLICT (run_id, step) DO UPDATE SET output = excluded.output"))
	if err != nil {
		return fmt.Errorf("save step: %w", err)
	}
	return nil
}

var runColumns = []string{"id", "job", "event_id", "status", "attempts", "error", "started_at", "updated_at"}

func scanRun(row rowScanner) (orchestrator.RunRecord, error) {
	var (
		run              orchestrator.RunRecord
		status           string
		runErr           sql.NullString
		started, updated string
	)
	if err := row.Scan(&run.ID, &run.Job, &run.EventID, &status, &run.Attempts, &runErr, &started, &updated); err != nil {
		return orchestrator.RunRecord{}, err
	}
	run.Status = orchestrator.RunStatus(status)
	run.Error = runErr.String
	run.StartedAt = parseTime(started)
	run.UpdatedAt = parseTime(updated)
	return run, nil
}

// SaveRun upserts a run record.
func (s *Store) SaveRun(ctx context.Context, run orchestrator.RunRecord) error {
	_, err := s.exec(ctx, sq.Insert("job_runs").
		Columns(runColumns...).
		Values(run.ID, run.Job, run.EventID, string(run.Status), run.Attempts,
			nullableString(run.Error), stamp(run.StartedAt), stamp(run.UpdatedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			error = excluded.error,
			updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun loads a run record.
func (s *Store) GetRun(ctx context.Context, runID string) (orchestrator.RunRecord, bool, error) {
	row, err := s.queryRow(ctx, sq.Select(runColumns...).From("job_runs").Where(sq.Eq{"id": runID}))
	if err != nil {
		return orchestrator.RunRecord{}, false, err
	}
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return orchestrator.RunRecord{}, false, nil
	}
	if err != nil {
		return orchestrator.RunRecord{}, false, fmt.Errorf("get run: %w", err)
	}
	return run, true, nil
}

// ListRuns returns the most recently updated runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]orchestrator.RunRecord, error) {
	stmt := sq.Select(runColumns...).From("job_runs").OrderBy("updated_at DESC")
	if limit > 0 {
		stmt = stmt.Limit(uint64(limit))
	}
	rows, err := s.query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return collect(rows, scanRun)
}
