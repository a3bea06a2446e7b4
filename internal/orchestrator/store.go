package orchestrator

import (
	"context"
	"time"
)

// RunStatus is the state of one job run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the persisted bookkeeping of a job run.
type RunRecord struct {
	ID        string
	Job       string
	EventID   string
	Status    RunStatus
	Attempts  int
	Error     string
	StartedAt time.Time
	UpdatedAt time.Time
}

// Store persists events, runs and memoized step results.
type Store interface {
	// AppendEvent stores an event for delivery; appending an existing id is a no-op.
	AppendEvent(ctx context.Context, event Event) error
	// ClaimEvents marks up to limit pending events as claimed and returns them.
	ClaimEvents(ctx context.Context, limit int, now time.Time) ([]Event, error)
	// CompleteEvent marks a claimed event delivered.
	CompleteEvent(ctx context.Context, id string) error
	// ReleaseStaleClaims returns events claimed before cutoff to pending.
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)

	LoadStep(ctx context.Context, runID, step string) ([]byte, bool, error)
	SaveStep(ctx context.Context, runID, step string, output []byte) error

	SaveRun(ctx context.Context, run RunRecord) error
	// GetRun returns ok=false when the run has never started.
	GetRun(ctx context.Context, runID string) (RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
