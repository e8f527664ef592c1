package autosave

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/zenibako/autosave-form/messages"
)

func newDemoForm(t *testing.T, values map[string]any) *Form {
	t.Helper()

	form := NewForm("demo", NewMapEntity(values))
	for _, c := range demoControls() {
		if err := form.AddControl(NewControl(c.Field, c.Kind, c.Type)); err != nil {
			t.Fatalf("Failed to add control %s: %v", c.Field, err)
		}
	}
	return form
}

// TestAddControlAssignsIDAndBaseline tests the html id and baseline of a bound control
func TestAddControlAssignsIDAndBaseline(t *testing.T) {
	form := newDemoForm(t, map[string]any{"line": "hello", "checkbox": true, "dropdown": int64(2)})

	line, _ := form.Control("line")
	if line.HTMLID != "demo_line" || line.Baseline != "hello" {
		t.Errorf("Unexpected line control %+v", line)
	}
	cb, _ := form.Control("checkbox")
	if cb.Baseline != "1" {
		t.Errorf("Expected checkbox baseline 1, got %q", cb.Baseline)
	}

	if err := form.AddControl(NewControl("line", KindLine, TypeString)); err == nil {
		t.Error("Expected an error for a duplicate field")
	}
	if err := form.AddControl(NewControl("", KindLine, TypeString)); err == nil {
		t.Error("Expected an error for an empty field")
	}
}

// TestLoadPost tests loading posted values, including the absent checkbox rule
func TestLoadPost(t *testing.T) {
	form := newDemoForm(t, map[string]any{"line": "old", "checkbox": true, "textarea": "keep"})

	err := form.LoadPost(url.Values{"line": {"new"}, "dropdown": {"2"}})
	if err != nil {
		t.Fatalf("LoadPost failed: %v", err)
	}

	e := form.Entity()
	if e.Get("line") != "new" {
		t.Errorf("Expected line new, got %v", e.Get("line"))
	}
	if e.Get("dropdown") != int64(2) {
		t.Errorf("Expected dropdown int64(2), got %#v", e.Get("dropdown"))
	}
	if e.Get("checkbox") != false {
		t.Errorf("Expected an absent checkbox to be unchecked, got %v", e.Get("checkbox"))
	}
	if e.Get("textarea") != "keep" {
		t.Errorf("Expected an absent textarea to keep its value, got %v", e.Get("textarea"))
	}
}

// TestLoadPostSkipsReadOnly tests that read-only controls cannot be written through a post
func TestLoadPostSkipsReadOnly(t *testing.T) {
	form := NewForm("demo", NewMapEntity(map[string]any{"line": "locked"}))
	ctrl := NewControl("line", KindLine, TypeString)
	ctrl.ReadOnly = true
	if err := form.AddControl(ctrl); err != nil {
		t.Fatal(err)
	}

	if err := form.LoadPost(url.Values{"line": {"changed"}}); err != nil {
		t.Fatalf("LoadPost failed: %v", err)
	}
	if form.Entity().Get("line") != "locked" {
		t.Errorf("Read-only field was written: %v", form.Entity().Get("line"))
	}
}

// TestSubmitUnchangedByHook tests that values the hook leaves alone produce no updates
func TestSubmitUnchangedByHook(t *testing.T) {
	form := newDemoForm(t, map[string]any{"line": "a", "dropdown": int64(1)})
	form.OnSubmit(func(sc *SubmitContext) ([]messages.Instruction, error) { return nil, nil })

	payload, err := form.Submit(context.Background(), url.Values{"line": {"b"}, "dropdown": {"1"}})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(payload.Instructions) != 1 || payload.Instructions[0].Op != messages.OpAffordanceClean {
		t.Errorf("Expected only affordance_clean, got %v", payload.Ops())
	}
	if payload.RequestID == "" {
		t.Error("Expected a request id")
	}
}

// TestSubmitReportsHookChanges tests that fields changed by the hook are pushed back
func TestSubmitReportsHookChanges(t *testing.T) {
	form := newDemoForm(t, map[string]any{"line": "a", "dropdown": int64(1)})
	form.OnSubmit(func(sc *SubmitContext) ([]messages.Instruction, error) {
		_ = sc.Entity.Set("dropdown", int64(2))
		return []messages.Instruction{messages.Script("console.log('saved');")}, nil
	})

	payload, err := form.Submit(context.Background(), url.Values{"line": {"a"}, "dropdown": {"1"}})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if fields := payload.Fields(messages.OpAnimate); len(fields) != 1 || fields[0] != "dropdown" {
		t.Errorf("Expected exactly dropdown to be updated, got %v", fields)
	}
	if payload.Instructions[0].Op != messages.OpScript {
		t.Errorf("Expected the hook's script first, got %v", payload.Ops())
	}
	dd, _ := form.Control("dropdown")
	if dd.Baseline != "2" {
		t.Errorf("Expected the dropdown baseline to follow the saved value, got %q", dd.Baseline)
	}
}

// TestSubmitBoundValidationFailure tests that a failing bound field yields one field error and no updates
func TestSubmitBoundValidationFailure(t *testing.T) {
	form := newDemoForm(t, map[string]any{"line": "a"})
	form.OnSubmit(func(sc *SubmitContext) ([]messages.Instruction, error) {
		_ = sc.Entity.Set("dropdown", int64(2))
		return nil, NewValidationError("line", "Line is required")
	})

	payload, err := form.Submit(context.Background(), url.Values{"line": {""}})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if payload.Count(messages.OpFieldError) != 1 {
		t.Fatalf("Expected exactly one field error, got %v", payload.Ops())
	}
	if payload.Count(messages.OpAnimate) != 0 || payload.Count(messages.OpAffordanceClean) != 0 {
		t.Errorf("A failed submit must not update controls, got %v", payload.Ops())
	}
	if payload.Instructions[1].Message != "Line is required" {
		t.Errorf("Unexpected message %q", payload.Instructions[1].Message)
	}
}

// TestSubmitUnboundValidationFailure tests that an error on a field without a control propagates
func TestSubmitUnboundValidationFailure(t *testing.T) {
	form := newDemoForm(t, nil)
	form.OnSubmit(func(sc *SubmitContext) ([]messages.Instruction, error) {
		return nil, NewValidationError("owner", "No owner")
	})

	_, err := form.Submit(context.Background(), url.Values{})
	var unbound *UnboundFieldError
	if !errors.As(err, &unbound) {
		t.Fatalf("Expected an UnboundFieldError, got %v", err)
	}
}

// TestSubmitHookError tests that other hook errors are wrapped and returned
func TestSubmitHookError(t *testing.T) {
	form := newDemoForm(t, nil)
	boom := errors.New("database gone")
	form.OnSubmit(func(sc *SubmitContext) ([]messages.Instruction, error) { return nil, boom })

	_, err := form.Submit(context.Background(), url.Values{})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "submit hook failed") {
		t.Errorf("Expected the wrapped hook error, got %v", err)
	}
}

// TestSubmitUnparsableInput tests that posted values of the wrong type become field errors
func TestSubmitUnparsableInput(t *testing.T) {
	form := newDemoForm(t, nil)
	called := false
	form.OnSubmit(func(sc *SubmitContext) ([]messages.Instruction, error) {
		called = true
		return nil, nil
	})

	payload, err := form.Submit(context.Background(), url.Values{"dropdown": {"many"}, "date": {"soon"}})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if called {
		t.Error("The hook must not run when posted values fail to load")
	}
	if fields := payload.Fields(messages.OpFieldError); len(fields) != 2 || fields[0] != "date" || fields[1] != "dropdown" {
		t.Errorf("Expected errors for date and dropdown, got %v", fields)
	}
}

// TestClientConfig tests the exported view of controls and timing
func TestClientConfig(t *testing.T) {
	form := newDemoForm(t, map[string]any{"line": "a"})
	cc := form.ClientConfig()

	if cc.Form != "demo" || cc.Affordance != "#demo_save" {
		t.Errorf("Unexpected header %+v", cc)
	}
	if cc.DebounceMS != 750 || cc.MinSubmittingMS != 300 {
		t.Errorf("Unexpected timing %d/%d", cc.DebounceMS, cc.MinSubmittingMS)
	}
	if len(cc.Controls) != len(demoControls()) {
		t.Fatalf("Expected %d controls, got %d", len(demoControls()), len(cc.Controls))
	}

	line := cc.Controls[0]
	if line.Selector != "#demo_line" || line.Trigger != "debounced" || !line.SuppressEnter || line.Baseline != "a" {
		t.Errorf("Unexpected line control %+v", line)
	}
	if cc.Controls[4].Trigger != "immediate" {
		t.Errorf("Expected the dropdown to submit immediately, got %s", cc.Controls[4].Trigger)
	}
}

// TestBindScript tests the runtime bootstrap for a form
func TestBindScript(t *testing.T) {
	form := newDemoForm(t, nil)
	script, err := form.BindScript()
	if err != nil {
		t.Fatalf("BindScript failed: %v", err)
	}
	if !strings.HasPrefix(script, RuntimeScript()) {
		t.Error("Expected the runtime first")
	}
	if !strings.Contains(script, `AutoSave.attach({"form":"demo"`) {
		t.Errorf("Expected the attach statement, got %s", script[len(RuntimeScript()):])
	}
}
