package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()
	s := NewTickerScheduler(5*time.Millisecond, time.UTC)

	var calls atomic.Int32
	if err := s.Start(context.Background(), func(time.Time) { calls.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 calls, got %d", calls.Load())
	}

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Fatal("job ran after stop")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	t.Parallel()
	if err := NewTickerScheduler(time.Second, nil).Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
