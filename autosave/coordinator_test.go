package autosave

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zenibako/autosave-form/messages"
)

// TestMinimumSubmittingDuration tests that a 10ms response still shows the loading state for 300ms
func TestMinimumSubmittingDuration(t *testing.T) {
	f := newPageFixture(t, nil, nil)

	var transitions []string
	f.page.OnAffordanceChange(func(from, to AffordanceState) {
		transitions = append(transitions, to.String())
	})

	f.watcher(t, "dropdown").Change("2")
	f.clock.Advance(10 * time.Millisecond)
	f.transport.request(0).done(cleanPayload(), nil)

	if f.page.Affordance() != AffordanceSubmitting {
		t.Fatalf("Expected submitting right after the response, got %s", f.page.Affordance())
	}
	f.clock.Advance(289 * time.Millisecond)
	if f.page.Affordance() != AffordanceSubmitting {
		t.Fatalf("Expected submitting before 300ms, got %s", f.page.Affordance())
	}
	f.clock.Advance(time.Millisecond)
	if f.page.Affordance() != AffordanceClean {
		t.Fatalf("Expected clean at 300ms, got %s", f.page.Affordance())
	}

	expected := []string{"dirty", "submitting", "clean"}
	if len(transitions) != len(expected) {
		t.Fatalf("Expected transitions %v, got %v", expected, transitions)
	}
	for i := range expected {
		if transitions[i] != expected[i] {
			t.Errorf("At index %d: expected %s, got %s", i, expected[i], transitions[i])
		}
	}
}

// TestSlowResponseFinishesImmediately tests that no extra wait is added once 300ms have passed
func TestSlowResponseFinishesImmediately(t *testing.T) {
	f := newPageFixture(t, nil, nil)

	f.watcher(t, "radio").Change("1")
	f.clock.Advance(time.Second)
	f.transport.request(0).done(cleanPayload(), nil)

	if f.page.Affordance() != AffordanceClean || f.page.InFlight() {
		t.Errorf("Expected clean and idle, got %s (in flight %v)", f.page.Affordance(), f.page.InFlight())
	}
}

// TestTriggersDuringFlightCoalesce tests that changes during a request collapse into one follow-up
func TestTriggersDuringFlightCoalesce(t *testing.T) {
	f := newPageFixture(t, nil, nil)

	f.watcher(t, "dropdown").Change("1")
	f.watcher(t, "radio").Change("2")
	f.watcher(t, "checkbox").Change("1")

	if f.transport.count() != 1 {
		t.Fatalf("Expected one request in flight, got %d", f.transport.count())
	}

	f.transport.request(0).done(cleanPayload(), nil)
	f.clock.Advance(300 * time.Millisecond)

	if f.transport.count() != 2 {
		t.Fatalf("Expected exactly one follow-up request, got %d", f.transport.count())
	}
	follow := f.transport.request(1).values
	if follow.Get("radio") != "2" || follow.Get("checkbox") != "1" || follow.Get("dropdown") != "1" {
		t.Errorf("Follow-up does not carry the newest values: %v", follow)
	}
	if f.page.Affordance() != AffordanceSubmitting {
		t.Errorf("Expected submitting during the follow-up, got %s", f.page.Affordance())
	}

	f.transport.request(1).done(cleanPayload(), nil)
	f.clock.Advance(300 * time.Millisecond)
	if f.page.Affordance() != AffordanceClean || f.transport.count() != 2 {
		t.Errorf("Expected clean with 2 requests, got %s with %d", f.page.Affordance(), f.transport.count())
	}
}

// TestInterruptInFlight tests that the interrupt option cancels the running request and discards its response
func TestInterruptInFlight(t *testing.T) {
	f := newPageFixture(t, nil, func(cc *ClientConfig) {
		cc.InterruptInFlight = true
	})

	f.watcher(t, "dropdown").Change("1")
	first := f.transport.request(0)
	f.watcher(t, "dropdown").Change("2")

	if !errors.Is(first.ctx.Err(), context.Canceled) {
		t.Fatalf("Expected the first request to be canceled, got %v", first.ctx.Err())
	}

	stale := messages.NewPayload("demo", "stale")
	stale.Add(messages.SelectDropdown("dropdown", "#demo_dropdown .ui.dropdown", "0"))
	first.done(stale, nil)

	if f.transport.count() != 2 {
		t.Fatalf("Expected the follow-up to start right away, got %d requests", f.transport.count())
	}
	if got := f.transport.request(1).values.Get("dropdown"); got != "2" {
		t.Errorf("Expected the newest value in the follow-up, got %q", got)
	}
	if got := f.watcher(t, "dropdown").Value(); got != "2" {
		t.Errorf("The interrupted response was applied: dropdown is %q", got)
	}
}

// TestFailedSubmitStaysDirty tests that a transport error leaves the affordance highlighted
func TestFailedSubmitStaysDirty(t *testing.T) {
	f := newPageFixture(t, nil, nil)

	f.watcher(t, "dropdown").Change("1")
	f.transport.request(0).done(nil, errors.New("connection refused"))
	f.clock.Advance(300 * time.Millisecond)

	if f.page.Affordance() != AffordanceDirty {
		t.Errorf("Expected dirty after a failed submit, got %s", f.page.Affordance())
	}

	f.page.Submit()
	f.transport.request(1).done(cleanPayload(), nil)
	f.clock.Advance(300 * time.Millisecond)
	if f.page.Affordance() != AffordanceClean {
		t.Errorf("Expected a successful retry to clean up, got %s", f.page.Affordance())
	}
}

// TestValidationResponseShowsErrors tests the failure payload on the client
func TestValidationResponseShowsErrors(t *testing.T) {
	f := newPageFixture(t, nil, func(cc *ClientConfig) {
		cc.MinSubmittingMS = 0
	})

	f.watcher(t, "radio").Change("2")
	failure := messages.NewPayload("demo", "req")
	failure.Add(
		messages.AffordanceDirty("#demo_save"),
		messages.FieldError("radio", "#demo", "Maybe is not allowed"),
	)
	f.transport.request(0).done(failure, nil)

	if f.page.Affordance() != AffordanceDirty {
		t.Errorf("Expected dirty, got %s", f.page.Affordance())
	}
	if f.page.Errors()["radio"] != "Maybe is not allowed" || f.effects.errors["radio"] == "" {
		t.Errorf("Expected the radio error to be shown, got %v", f.page.Errors())
	}

	f.watcher(t, "radio").Change("1")
	f.transport.request(1).done(cleanPayload(), nil)
	if len(f.page.Errors()) != 0 || f.page.Affordance() != AffordanceClean {
		t.Errorf("Expected errors cleared and clean, got %v / %s", f.page.Errors(), f.page.Affordance())
	}
}

// TestServerUpdateKeepsNewerEdit tests that a response does not overwrite what the user typed since the send
func TestServerUpdateKeepsNewerEdit(t *testing.T) {
	f := newPageFixture(t, nil, nil)
	line := f.watcher(t, "line")

	line.Input("a b  ")
	f.clock.Advance(750 * time.Millisecond)
	line.Input("a b  c")

	resp := cleanPayload()
	resp.Add(
		messages.SetInputValue("line", "#demo_line_input", "a b"),
		messages.SetBaseline("line", "#demo_line", "a b"),
		messages.Animate("line", "#demo_line_input", false, messages.DefaultAnimation()),
	)
	f.transport.request(0).done(resp, nil)
	f.clock.Advance(300 * time.Millisecond)

	if got := line.Value(); got != "a b  c" {
		t.Errorf("Expected the newer edit to survive, got %q", got)
	}
	if len(f.effects.animated) != 0 {
		t.Errorf("Expected no flash on a skipped update, got %v", f.effects.animated)
	}
	if f.page.Affordance() != AffordanceDirty {
		t.Errorf("Expected dirty while the newer edit is unsent, got %s", f.page.Affordance())
	}
}

// TestNilTransportDropsSubmit tests that a page without a transport does not hang in submitting
func TestNilTransportDropsSubmit(t *testing.T) {
	cc := newDemoForm(t, nil).ClientConfig()
	clock := NewManualScheduler(time.Now())
	page := NewPage(cc, nil, clock)

	page.Submit()
	clock.Advance(300 * time.Millisecond)

	if page.InFlight() || page.Affordance() != AffordanceDirty {
		t.Errorf("Expected idle and dirty, got in flight %v, %s", page.InFlight(), page.Affordance())
	}
	if page.Coordinator().Sent() != 1 {
		t.Errorf("Expected one attempted submit, got %d", page.Coordinator().Sent())
	}
}
