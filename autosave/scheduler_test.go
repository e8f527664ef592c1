package autosave

import (
	"testing"
	"time"
)

// TestManualSchedulerFiresInDueOrder tests that timers fire in due order and only when reached
func TestManualSchedulerFiresInDueOrder(t *testing.T) {
	s := NewManualScheduler(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	var fired []string

	s.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "b") })
	s.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	stopped := s.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "stopped") })

	if !stopped.Stop() {
		t.Error("Expected Stop to report a pending timer")
	}
	if stopped.Stop() {
		t.Error("Expected a second Stop to report nothing pending")
	}

	s.Advance(299 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("Expected only a, got %v", fired)
	}
	s.Advance(time.Millisecond)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("Expected a then b, got %v", fired)
	}
	if s.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", s.Pending())
	}
}

// TestManualSchedulerTimersScheduledWhileFiring tests timers created by a firing timer
func TestManualSchedulerTimersScheduledWhileFiring(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewManualScheduler(start)
	var at []time.Duration

	s.AfterFunc(10*time.Millisecond, func() {
		at = append(at, s.Now().Sub(start))
		s.AfterFunc(290*time.Millisecond, func() { at = append(at, s.Now().Sub(start)) })
	})

	s.Advance(time.Second)
	if len(at) != 2 || at[0] != 10*time.Millisecond || at[1] != 300*time.Millisecond {
		t.Errorf("Unexpected firing times %v", at)
	}
	if s.Now().Sub(start) != time.Second {
		t.Errorf("Expected the clock at 1s, got %v", s.Now().Sub(start))
	}
}
