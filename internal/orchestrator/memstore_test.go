package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memEvent struct {
	event     Event
	status    string
	claimedAt time.Time
}

type memStore struct {
	mu     sync.Mutex
	events []*memEvent
	steps  map[string][]byte
	runs   map[string]RunRecord
}

func newMemStore() *memStore {
	return &memStore{steps: map[string][]byte{}, runs: map[string]RunRecord{}}
}

func (m *memStore) AppendEvent(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.event.ID == event.ID {
			return nil
		}
	}
	m.events = append(m.events, &memEvent{event: event, status: "pending"})
	return nil
}

func (m *memStore) ClaimEvents(_ context.Context, limit int, now time.Time) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if len(out) == limit {
			break
		}
		if e.status == "pending" {
			e.status = "claimed"
			e.claimedAt = now
			out = append(out, e.event)
		}
	}
	return out, nil
}

func (m *memStore) CompleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.event.ID == id {
			e.status = "dispatched"
		}
	}
	return nil
}

func (m *memStore) ReleaseStaleClaims(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.events {
		if e.status == "claimed" && e.claimedAt.Before(cutoff) {
			e.status = "pending"
			n++
		}
	}
	return n, nil
}

func (m *memStore) LoadStep(_ context.Context, runID, step string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.steps[runID+"/"+step]
	return data, ok, nil
}

func (m *memStore) SaveStep(_ context.Context, runID, step string, output []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID+"/"+step] = output
	return nil
}

func (m *memStore) SaveRun(_ context.Context, run RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memStore) GetRun(_ context.Context, runID string) (RunRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	return run, ok, nil
}

func (m *memStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) pending(name string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.event.Name == name && e.status == "pending" {
			out = append(out, e.event)
		}
	}
	return out
}
