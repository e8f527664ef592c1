package autosave

import (
	"github.com/zenibako/autosave-form/messages"
)

// ControlKind identifies the widget a field is rendered with
type ControlKind string

const (
	KindLine     ControlKind = "line"
	KindTextarea ControlKind = "textarea"
	KindCalendar ControlKind = "calendar"
	KindDropdown ControlKind = "dropdown"
	KindLookup   ControlKind = "lookup"
	KindRadio    ControlKind = "radio"
	KindCheckbox ControlKind = "checkbox"
)

// TriggerPolicy decides when an edit turns into a submit
type TriggerPolicy int

const (
	TriggerNone      TriggerPolicy = iota // Unsupported kind, never submits
	TriggerImmediate                      // Submit on every change event
	TriggerDebounced                      // Submit after the debounce window
	TriggerCombined                       // Debounced typing, immediate picker selection
)

func (t TriggerPolicy) String() string {
	switch t {
	case TriggerImmediate:
		return "immediate"
	case TriggerDebounced:
		return "debounced"
	case TriggerCombined:
		return "combined"
	default:
		return "none"
	}
}

// ParseTriggerPolicy is the inverse of TriggerPolicy.String
func ParseTriggerPolicy(s string) TriggerPolicy {
	switch s {
	case "immediate":
		return TriggerImmediate
	case "debounced":
		return TriggerDebounced
	case "combined":
		return TriggerCombined
	default:
		return TriggerNone
	}
}

// kindBehavior is everything that differs between control kinds
type kindBehavior struct {
	trigger        TriggerPolicy
	inputTag       string
	suppressEnter  bool
	tracksBaseline bool
	update         func(b *messages.ScriptBuilder, c *Control, value string) []messages.Instruction
	animation      func(b *messages.ScriptBuilder, c *Control) (target string, parent bool)
}

var kinds = map[ControlKind]kindBehavior{
	KindLine: {
		trigger:        TriggerDebounced,
		inputTag:       "input",
		suppressEnter:  true,
		tracksBaseline: true,
		update:         inputUpdate(messages.SelInput),
		animation:      animateSelector(messages.SelInput, false),
	},
	KindTextarea: {
		trigger:        TriggerDebounced,
		inputTag:       "textarea",
		tracksBaseline: true,
		update:         inputUpdate(messages.SelTextarea),
		animation:      animateSelector(messages.SelTextarea, false),
	},
	KindCalendar: {
		trigger:        TriggerCombined,
		inputTag:       "input",
		suppressEnter:  true,
		tracksBaseline: true,
		update:         inputUpdate(messages.SelInput),
		animation:      animateSelector(messages.SelInput, false),
	},
	KindDropdown: {
		trigger:   TriggerImmediate,
		inputTag:  "input",
		update:    dropdownUpdate,
		animation: animateSelector(messages.SelDropdown, false),
	},
	KindLookup: {
		trigger:   TriggerImmediate,
		inputTag:  "input",
		update:    dropdownUpdate,
		animation: animateSelector(messages.SelDropdown, false),
	},
	KindRadio: {
		trigger:   TriggerImmediate,
		inputTag:  "input",
		update:    radioUpdate,
		animation: animateSelector(messages.SelControl, false),
	},
	KindCheckbox: {
		trigger:   TriggerImmediate,
		inputTag:  "input",
		update:    checkboxUpdate,
		animation: animateSelector(messages.SelControl, true),
	},
}

// Kinds returns every supported kind
func Kinds() []ControlKind {
	return []ControlKind{KindLine, KindTextarea, KindCalendar, KindDropdown, KindLookup, KindRadio, KindCheckbox}
}

// Supported reports whether the kind has a trigger policy and update procedure
func (k ControlKind) Supported() bool {
	_, ok := kinds[k]
	return ok
}

func (k ControlKind) Trigger() TriggerPolicy {
	return kinds[k].trigger
}

// InputTag is the element that holds the control's raw value
func (k ControlKind) InputTag() string {
	if behavior, ok := kinds[k]; ok {
		return behavior.inputTag
	}
	return "input"
}

// SuppressesEnter reports whether the Enter key is swallowed by the control
func (k ControlKind) SuppressesEnter() bool {
	return kinds[k].suppressEnter
}

// TracksBaseline reports whether the watcher compares typed input against a baseline
func (k ControlKind) TracksBaseline() bool {
	return kinds[k].tracksBaseline
}

func inputUpdate(selector string) func(*messages.ScriptBuilder, *Control, string) []messages.Instruction {
	return func(b *messages.ScriptBuilder, c *Control, value string) []messages.Instruction {
		params := map[string]string{"id": c.HTMLID}
		return []messages.Instruction{
			messages.SetInputValue(c.Field, b.BuildSelector(selector, params), value),
			messages.SetBaseline(c.Field, b.BuildSelector(messages.SelControl, params), value),
		}
	}
}

func dropdownUpdate(b *messages.ScriptBuilder, c *Control, value string) []messages.Instruction {
	target := b.BuildSelector(messages.SelDropdown, map[string]string{"id": c.HTMLID})
	return []messages.Instruction{messages.SelectDropdown(c.Field, target, value)}
}

// FUI renders one checkbox per radio option, so the option is found by value
func radioUpdate(b *messages.ScriptBuilder, c *Control, value string) []messages.Instruction {
	target := b.BuildSelector(messages.SelRadioOption, map[string]string{
		"id":    c.HTMLID,
		"field": c.Field,
		"value": value,
	})
	return []messages.Instruction{messages.CheckRadio(c.Field, target, value)}
}

func checkboxUpdate(b *messages.ScriptBuilder, c *Control, value string) []messages.Instruction {
	target := b.BuildSelector(messages.SelControl, map[string]string{"id": c.HTMLID})
	return []messages.Instruction{messages.SetChecked(c.Field, target, value == "1")}
}

func animateSelector(selector string, parent bool) func(*messages.ScriptBuilder, *Control) (string, bool) {
	return func(b *messages.ScriptBuilder, c *Control) (string, bool) {
		return b.BuildSelector(selector, map[string]string{"id": c.HTMLID}), parent
	}
}
