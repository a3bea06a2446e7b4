package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultStepAttempts = 4
	defaultBaseDelay    = 2 * time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultConcurrency  = 4
	defaultBatchSize    = 16
	defaultPollInterval = time.Second
)

var (
	runNamespace   = uuid.MustParse("6f1c1d0e-5b0a-4c57-9d3f-8c1f2a7d9e41")
	eventNamespace = uuid.MustParse("b2e8a4f7-3c19-4d6e-a0b5-7e2d9c4f1a63")
)

// Handler runs one job for one event.
type Handler func(ctx context.Context, run *Run, event Event) error

// FailureHandler is invoked once a run has failed for good.
type FailureHandler func(ctx context.Context, event Event, cause error) error

// Job binds a handler to the event that triggers it.
type Job struct {
	Name      string
	Trigger   string
	Handler   Handler
	OnFailure FailureHandler
}

// RetryPolicy bounds in-place step retries.
type RetryPolicy struct {
	StepAttempts int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

// Backoff returns the delay after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engine registers jobs and delivers events to them.
type Engine struct {
	store        Store
	jobs         map[string]Job
	triggers     map[string][]string
	policy       RetryPolicy
	logger       *slog.Logger
	sleep        Sleeper
	concurrency  int
	batchSize    int
	pollInterval time.Duration
}

// Option customizes the engine.
type Option func(*Engine)

// WithRetryPolicy overrides step retry limits.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(e *Engine) {
		if policy.StepAttempts > 0 {
			e.policy.StepAttempts = policy.StepAttempts
		}
		if policy.BaseDelay > 0 {
			e.policy.BaseDelay = policy.BaseDelay
		}
		if policy.MaxDelay > 0 {
			e.policy.MaxDelay = policy.MaxDelay
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSleeper overrides how retry backoff waits (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(e *Engine) {
		if sleeper != nil {
			e.sleep = sleeper
		}
	}
}

// WithConcurrency bounds how many events are processed at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithPollInterval sets how often Run looks for new events.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// New constructs an engine backed by store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		jobs:     map[string]Job{},
		triggers: map[string][]string{},
		policy: RetryPolicy{
			StepAttempts: defaultStepAttempts,
			BaseDelay:    defaultBaseDelay,
			MaxDelay:     defaultMaxDelay,
		},
		logger:       slog.New(slog.DiscardHandler),
		sleep:        sleepContext,
		concurrency:  defaultConcurrency,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register subscribes a job to its trigger event.
func (e *Engine) Register(job Job) error {
	if job.Name == "" || job.Trigger == "" || job.Handler == nil {
		return fmt.Errorf("register job: name, trigger and handler are required")
	}
	if _, exists := e.jobs[job.Name]; exists {
		return fmt.Errorf("register job: %s already registered", job.Name)
	}
	e.jobs[job.Name] = job
	e.triggers[job.Trigger] = append(e.triggers[job.Trigger], job.Name)
	return nil
}

// Send persists an event for delivery.
func (e *Engine) Send(ctx context.Context, name string, payload any) (Event, error) {
	return e.SendWithID(ctx, uuid.NewString(), name, payload)
}

// SendWithID persists an event under a caller-chosen id. Sending an id that
// is already stored, delivered or not, is a no-op.
func (e *Engine) SendWithID(ctx context.Context, id, name string, payload any) (Event, error) {
	event, err := newEvent(id, name, payload)
	if err != nil {
		return Event{}, err
	}
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return Event{}, fmt.Errorf("append event %s: %w", name, err)
	}
	e.logger.Debug("event sent", "event", name, "event_id", event.ID)
	return event, nil
}

// KeyedEventID derives a stable event id from the event name and a natural
// key, so requests for the same work collapse into one event.
func KeyedEventID(name, key string) string {
	return uuid.NewSHA1(eventNamespace, []byte(name+":"+key)).String()
}

// RunID derives the stable run identifier for a job and event.
func RunID(job, eventID string) string {
	return uuid.NewSHA1(runNamespace, []byte(job+":"+eventID)).String()
}

// Run dispatches events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := e.DispatchOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Error("dispatch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce claims a batch of pending events and runs their jobs. It
// returns the number of events delivered.
func (e *Engine) DispatchOnce(ctx context.Context) (int, error) {
	events, err := e.store.ClaimEvents(ctx, e.batchSize, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("claim events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var (
		group     errgroup.Group
		delivered = make([]bool, len(events))
	)
	group.SetLimit(e.concurrency)
	for i, event := range events {
		group.Go(func() error {
			if err := e.deliver(ctx, event); err != nil {
				return fmt.Errorf("deliver %s %s: %w", event.Name, event.ID, err)
			}
			delivered[i] = true
			return nil
		})
	}
	waitErr := group.Wait()

	count := 0
	for _, ok := range delivered {
		if ok {
			count++
		}
	}
	return count, waitErr
}

func (e *Engine) deliver(ctx context.Context, event Event) error {
	names := e.triggers[event.Name]
	if len(names) == 0 {
		e.logger.Warn("no job subscribed to event", "event", event.Name, "event_id", event.ID)
	}
	for _, name := range names {
		if _, err := e.Execute(ctx, name, event); err != nil {
			return err
		}
	}
	return e.store.CompleteEvent(ctx, event.ID)
}

// Execute runs (or resumes) the named job for event. The returned error covers
// bookkeeping failures and cancellation only; a failed job is reported through
// the record's status.
func (e *Engine) Execute(ctx context.Context, jobName string, event Event) (RunRecord, error) {
	job, ok := e.jobs[jobName]
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobName)
	}

	runID := RunID(job.Name, event.ID)
	logger := e.logger.With("job", job.Name, "run_id", runID, "event_id", event.ID)

	record, exists, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return RunRecord{}, fmt.Errorf("load run: %w", err)
	}
	if exists && record.Status != RunRunning {
		logger.Debug("run already finished", "status", string(record.Status))
		return record, nil
	}

	now := time.Now().UTC()
	if !exists {
		record = RunRecord{ID: runID, Job: job.Name, EventID: event.ID, StartedAt: now}
	}
	record.Status = RunRunning
	record.Attempts++
	record.UpdatedAt = now
	if err := e.store.SaveRun(ctx, record); err != nil {
		return record, fmt.Errorf("save run: %w", err)
	}

	started := time.Now()
	logger.Info("run started", "attempt", record.Attempts)
	run := &Run{ID: runID, Job: job.Name, Event: event, engine: e, logger: logger}
	runErr := job.Handler(ctx, run, event)

	if runErr != nil && ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
		logger.Debug("run interrupted", "error", runErr)
		return record, ctx.Err()
	}

	record.UpdatedAt = time.Now().UTC()
	if runErr == nil {
		record.Status = RunCompleted
		record.Error = ""
		logger.Info("run completed", "duration", time.Since(started))
	} else {
		record.Status = RunFailed
		record.Error = runErr.Error()
		logger.Error("run failed", "error", runErr, "permanent", IsPermanent(runErr), "duration", time.Since(started))
	}
	if err := e.store.SaveRun(ctx, record); err != nil {
		return record, fmt.Errorf("save run: %w", err)
	}

	if runErr != nil && job.OnFailure != nil {
		if err := job.OnFailure(ctx, event, runErr); err != nil {
			logger.Error("failure handler failed", "error", err)
		}
	}
	return record, nil
}

// ReleaseStale returns claims older than staleAfter to the pending pool.
func (e *Engine) ReleaseStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	released, err := e.store.ReleaseStaleClaims(ctx, time.Now().UTC().Add(-staleAfter))
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	if released > 0 {
		e.logger.Warn("released stale event claims", "count", released)
	}
	return released, nil
}
