package messages

import (
	"strings"
	"testing"
)

// TestBuildSelector tests placeholder substitution and quote escaping in selectors
func TestBuildSelector(t *testing.T) {
	b := NewScriptBuilder("demo")

	tests := []struct {
		name     string
		pattern  string
		params   map[string]string
		expected string
	}{
		{"control", SelControl, map[string]string{"id": "demo_line"}, "#demo_line"},
		{"input", SelInput, map[string]string{"id": "demo_line"}, "#demo_line_input"},
		{"dropdown", SelDropdown, map[string]string{"id": "demo_dd"}, "#demo_dd .ui.dropdown"},
		{"affordance", SelAffordance, nil, "#demo_save"},
		{
			"radio option with quote in value",
			SelRadioOption,
			map[string]string{"id": "demo_radio", "field": "radio", "value": `a"b`},
			`#demo_radio input[name="radio"][value="a\"b"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.BuildSelector(tt.pattern, tt.params)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// TestBuildAddress tests OSC address rendering for the change feed
func TestBuildAddress(t *testing.T) {
	b := NewScriptBuilder("demo")
	got := b.BuildAddress(AddrFieldChanged, map[string]string{"field": "line"})
	if got != "/form/demo/field/line/changed" {
		t.Errorf("Unexpected address %q", got)
	}
	if got := b.BuildAddress(AddrSubmitted, nil); got != "/form/demo/submitted" {
		t.Errorf("Unexpected address %q", got)
	}
}

// TestBuildScriptQuotesValues tests that values are rendered as JS string literals
func TestBuildScriptQuotesValues(t *testing.T) {
	b := NewScriptBuilder("demo")

	got := b.BuildScript(SetInputValue("line", "#demo_line_input", `say "hi" {value}`))
	expected := `$("#demo_line_input").val("say \"hi\" {value}");`
	if got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

// TestBuildScriptPerOp tests the statement rendered for each instruction op
func TestBuildScriptPerOp(t *testing.T) {
	b := NewScriptBuilder("demo")

	tests := []struct {
		name     string
		in       Instruction
		contains string
	}{
		{"clean", AffordanceClean("#demo_save"), `addClass("basic").removeClass("loading")`},
		{"dirty", AffordanceDirty("#demo_save"), `removeClass("basic").removeClass("loading")`},
		{"dropdown", SelectDropdown("dd", "#demo_dd .ui.dropdown", "2"), `dropdown("set selected", "2", true)`},
		{"radio", CheckRadio("radio", "#x", "1"), `parent().checkbox("set checked")`},
		{"checked", SetChecked("cb", "#demo_cb", true), `checkbox("set checked")`},
		{"unchecked", SetChecked("cb", "#demo_cb", false), `checkbox("set unchecked")`},
		{"baseline", SetBaseline("line", "#demo_line", "x"), `AutoSave.setBaseline("demo", "line", "x");`},
		{"field error", FieldError("line", "#demo", "Required"), `form("add prompt", "line", "Required")`},
		{"log", Log("hello"), `console.log("hello")`},
		{"script", Script("alert(1);"), `alert(1);`},
		{"unknown", Instruction{Op: "teleport"}, `unknown autosave instruction`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.BuildScript(tt.in)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("Expected %q in %q", tt.contains, got)
			}
		})
	}
}

// TestBuildScriptAnimate tests the animation statement, including the parent variant for checkboxes
func TestBuildScriptAnimate(t *testing.T) {
	b := NewScriptBuilder("demo")

	got := b.BuildScript(Animate("line", "#demo_line_input", false, DefaultAnimation()))
	if !strings.Contains(got, `el.animate([{"background":"palegreen"},{"background":"#ffffff"}], {"duration":4000,"easing":"ease-out"})`) {
		t.Errorf("Unexpected animate script: %s", got)
	}
	if !strings.Contains(got, `document.querySelector("#demo_line_input")`) {
		t.Errorf("Animate script does not target the input: %s", got)
	}

	got = b.BuildScript(Animate("cb", "#demo_cb", true, DefaultAnimation()))
	if !strings.Contains(got, "el.parentNode.animate(") {
		t.Errorf("Expected parent animation, got %s", got)
	}
}

// TestPayloadHelpers tests counting, op listing and field extraction on a payload
func TestPayloadHelpers(t *testing.T) {
	p := NewPayload("demo", "req")
	p.Add(
		AffordanceClean("#demo_save"),
		SetInputValue("line", "#demo_line_input", "a"),
		Animate("line", "#demo_line_input", false, DefaultAnimation()),
		SelectDropdown("dd", "#demo_dd .ui.dropdown", "1"),
		Animate("dd", "#demo_dd .ui.dropdown", false, DefaultAnimation()),
	)

	if p.Count(OpAnimate) != 2 {
		t.Errorf("Expected 2 animations, got %d", p.Count(OpAnimate))
	}
	fields := p.Fields(OpAnimate)
	if len(fields) != 2 || fields[0] != "line" || fields[1] != "dd" {
		t.Errorf("Unexpected animated fields %v", fields)
	}
	if ops := p.Ops(); ops[0] != OpAffordanceClean {
		t.Errorf("Expected the affordance reset first, got %v", ops)
	}
	if lines := strings.Split(p.Script(), "\n"); len(lines) != 5 {
		t.Errorf("Expected one statement per instruction, got %d", len(lines))
	}
}

// TestDecodePayloadRejectsOtherVersions tests the schema version check
func TestDecodePayloadRejectsOtherVersions(t *testing.T) {
	if _, err := DecodePayload([]byte(`{"v":2,"instructions":[]}`)); err == nil {
		t.Error("Expected an error for schema version 2")
	}
	if _, err := DecodePayload([]byte(`not json`)); err == nil {
		t.Error("Expected an error for malformed json")
	}

	p, err := DecodePayload([]byte(`{"v":1,"form":"demo","instructions":[{"op":"set_checked","field":"cb","value":"1","checked":true}]}`))
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if p.FormID != "demo" || len(p.Instructions) != 1 || !p.Instructions[0].Checked {
		t.Errorf("Unexpected payload %+v", p)
	}
}
