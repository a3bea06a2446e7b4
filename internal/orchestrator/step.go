package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Run is the handle a job handler uses to execute steps.
type Run struct {
	ID     string
	Job    string
	Event  Event
	engine *Engine
	logger *slog.Logger
}

// Logger returns the run-scoped logger.
func (r *Run) Logger() *slog.Logger {
	return r.logger
}

// Step executes fn once per run under name and memoizes its JSON-encoded
// result. On replay the stored result is returned and fn is not called.
// Failures are retried with backoff unless permanent.
func Step[T any](ctx context.Context, run *Run, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	store := run.engine.store
	logger := run.logger.With("step", name)

	stored, ok, err := store.LoadStep(ctx, run.ID, name)
	if err != nil {
		return zero, fmt.Errorf("step %s: load memo: %w", name, err)
	}
	if ok {
		var out T
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, Permanent(fmt.Errorf("step %s: decode memo: %w", name, err))
		}
		logger.Debug("step replayed from memo")
		return out, nil
	}

	policy := run.engine.policy
	var lastErr error
	for attempt := 1; attempt <= policy.StepAttempts; attempt++ {
		started := time.Now()
		out, err := fn(ctx)
		if err == nil {
			encoded, encErr := json.Marshal(out)
			if encErr != nil {
				return zero, Permanent(fmt.Errorf("step %s: encode result: %w", name, encErr))
			}
			if saveErr := store.SaveStep(ctx, run.ID, name, encoded); saveErr != nil {
				return zero, fmt.Errorf("step %s: save memo: %w", name, saveErr)
			}
			logger.Debug("step completed", "attempt", attempt, "duration", time.Since(started))
			return out, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if IsPermanent(err) {
			logger.Warn("step failed permanently", "attempt", attempt, "error", err)
			return zero, fmt.Errorf("step %s: %w", name, err)
		}
		if attempt == policy.StepAttempts {
			break
		}
		delay := policy.Backoff(attempt)
		logger.Warn("step failed, retrying", "attempt", attempt, "retry_in", delay, "error", err)
		if err := run.engine.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("step %s: retry budget exhausted after %d attempts: %w", name, policy.StepAttempts, lastErr)
}

// SendEvent emits the next stage's event as a memoized step. The event id is
// derived from the run and step so a replay cannot enqueue a duplicate.
func (r *Run) SendEvent(ctx context.Context, step, name string, payload any) error {
	_, err := Step(ctx, r, step, func(ctx context.Context) (string, error) {
		id := uuid.NewSHA1(uuid.MustParse(r.ID), []byte(step)).String()
		event, err := newEvent(id, name, payload)
		if err != nil {
			return "", Permanent(err)
		}
		if err := r.engine.store.AppendEvent(ctx, event); err != nil {
			return "", fmt.Errorf("append event %s: %w", name, err)
		}
		r.logger.Info("event emitted", "event", name, "next_event_id", event.ID)
		return event.ID, nil
	})
	return err
}
