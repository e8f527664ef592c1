package messages

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Instruction ops understood by the client runtime. The set is part of the
// payload contract; bump SchemaVersion when an op changes meaning.

// Op identifies what a client instruction does
type Op string

const (
	// Consumer pass-through
	OpScript Op = "script"

	// Submit affordance
	OpAffordanceClean Op = "affordance_clean"
	OpAffordanceDirty Op = "affordance_dirty"

	// Control value updates
	OpSetInputValue  Op = "set_input_value"
	OpSelectDropdown Op = "select_dropdown"
	OpCheckRadio     Op = "check_radio"
	OpSetChecked     Op = "set_checked"
	OpSetBaseline    Op = "set_baseline"

	// Feedback
	OpAnimate    Op = "animate"
	OpFieldError Op = "field_error"
	OpLog        Op = "log"
)

// SchemaVersion is the version of the instruction payload
const SchemaVersion = 1

// CSS selector patterns. {id} is the control's html id, {form} the form id.
const (
	SelControl     = "#{id}"
	SelInput       = "#{id}_input"
	SelTextarea    = "#{id} textarea"
	SelDropdown    = "#{id} .ui.dropdown"
	SelRadioOption = `#{id} input[name="{field}"][value="{value}"]`
	SelForm        = "#{form}"
	SelAffordance  = "#{form}_save"
)

// Client script patterns. Placeholders are replaced with JS string literals,
// except {animation} and {parent} which are inserted as-is. Baselines live in
// the AutoSave runtime, so set_baseline calls into it.
const (
	ScriptAffordanceClean = `$({target}).addClass("basic").removeClass("loading");`
	ScriptAffordanceDirty = `$({target}).removeClass("basic").removeClass("loading");`
	ScriptSetInputValue   = `$({target}).val({value});`
	ScriptSelectDropdown  = `$({target}).dropdown("set selected", {value}, true);`
	ScriptCheckRadio      = `$({target}).parent().checkbox("set checked");`
	ScriptSetChecked      = `$({target}).checkbox({state});`
	ScriptSetBaseline     = `AutoSave.setBaseline({form}, {field}, {value});`
	ScriptAnimate         = `(function (el) { if (el) { el{parent}.animate({animation}); } })(document.querySelector({target}));`
	ScriptFieldError      = `$({target}).form("add prompt", {field}, {message});`
	ScriptLog             = `console.log({message});`
)

// OSC change feed addresses
const (
	AddrFieldChanged = "/form/{form}/field/{field}/changed"
	AddrSubmitted    = "/form/{form}/submitted"
)

// ScriptBuilder renders instructions and selectors for one form
type ScriptBuilder struct {
	formID string
}

// NewScriptBuilder creates a new script builder
func NewScriptBuilder(formID string) *ScriptBuilder {
	return &ScriptBuilder{
		formID: formID,
	}
}

// BuildSelector fills a selector pattern
func (b *ScriptBuilder) BuildSelector(pattern string, params map[string]string) string {
	selector := pattern

	if strings.Contains(selector, "{form}") && b.formID != "" {
		selector = strings.ReplaceAll(selector, "{form}", b.formID)
	}

	for key, value := range params {
		placeholder := fmt.Sprintf("{%s}", key)
		selector = strings.ReplaceAll(selector, placeholder, escapeSelectorValue(value))
	}

	return selector
}

// BuildAddress fills an OSC address pattern
func (b *ScriptBuilder) BuildAddress(pattern string, params map[string]string) string {
	address := strings.ReplaceAll(pattern, "{form}", b.formID)
	for key, value := range params {
		address = strings.ReplaceAll(address, fmt.Sprintf("{%s}", key), value)
	}
	return address
}

// AffordanceSelector returns the selector of the form's submit button
func (b *ScriptBuilder) AffordanceSelector() string {
	return b.BuildSelector(SelAffordance, nil)
}

// FormSelector returns the selector of the form element
func (b *ScriptBuilder) FormSelector() string {
	return b.BuildSelector(SelForm, nil)
}

// BuildScript renders a single instruction as a JS statement. Unknown ops
// render as a console diagnostic.
func (b *ScriptBuilder) BuildScript(in Instruction) string {
	var pattern string
	params := map[string]string{
		"target":  Quote(in.Target),
		"value":   Quote(in.Value),
		"field":   Quote(in.Field),
		"message": Quote(in.Message),
		"form":    Quote(b.formID),
	}

	switch in.Op {
	case OpScript:
		return in.Script
	case OpAffordanceClean:
		pattern = ScriptAffordanceClean
	case OpAffordanceDirty:
		pattern = ScriptAffordanceDirty
	case OpSetInputValue:
		pattern = ScriptSetInputValue
	case OpSelectDropdown:
		pattern = ScriptSelectDropdown
	case OpCheckRadio:
		pattern = ScriptCheckRadio
	case OpSetChecked:
		pattern = ScriptSetChecked
		if in.Checked {
			params["state"] = Quote("set checked")
		} else {
			params["state"] = Quote("set unchecked")
		}
	case OpSetBaseline:
		pattern = ScriptSetBaseline
	case OpAnimate:
		pattern = ScriptAnimate
		anim := DefaultAnimation()
		if in.Animation != nil {
			anim = *in.Animation
		}
		params["animation"] = anim.Args()
		params["parent"] = ""
		if in.Parent {
			params["parent"] = ".parentNode"
		}
	case OpFieldError:
		pattern = ScriptFieldError
	case OpLog:
		pattern = ScriptLog
	default:
		return fmt.Sprintf(`console.log(%s);`, Quote(fmt.Sprintf("unknown autosave instruction %q", in.Op)))
	}

	pairs := make([]string, 0, len(params)*2)
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(pattern)
}

// Quote renders s as a JS string literal
func Quote(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(encoded)
}

func escapeSelectorValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// FormID returns the form the builder renders for
func (b *ScriptBuilder) FormID() string {
	return b.formID
}
