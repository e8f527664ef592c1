package messages

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Instruction is a single client-applicable step of a submit response
type Instruction struct {
	Op        Op         `json:"op"`
	Field     string     `json:"field,omitempty"`     // Field name of the control the step applies to
	Target    string     `json:"target,omitempty"`    // CSS selector of the element the step touches
	Value     string     `json:"value,omitempty"`     // Input value in the control's textual form
	Checked   bool       `json:"checked,omitempty"`   // set_checked only
	Parent    bool       `json:"parent,omitempty"`    // animate only: animate the target's parent node
	Animation *Animation `json:"animation,omitempty"` // animate only: nil means the default animation
	Message   string     `json:"message,omitempty"`   // field_error and log
	Script    string     `json:"script,omitempty"`    // script only
}

// Script wraps a raw client statement supplied by the submit hook
func Script(js string) Instruction {
	return Instruction{Op: OpScript, Script: js}
}

// AffordanceClean resets the submit button to its outline state
func AffordanceClean(target string) Instruction {
	return Instruction{Op: OpAffordanceClean, Target: target}
}

// AffordanceDirty keeps the submit button highlighted and stops its loading state
func AffordanceDirty(target string) Instruction {
	return Instruction{Op: OpAffordanceDirty, Target: target}
}

func SetInputValue(field, target, value string) Instruction {
	return Instruction{Op: OpSetInputValue, Field: field, Target: target, Value: value}
}

func SelectDropdown(field, target, value string) Instruction {
	return Instruction{Op: OpSelectDropdown, Field: field, Target: target, Value: value}
}

func CheckRadio(field, target, value string) Instruction {
	return Instruction{Op: OpCheckRadio, Field: field, Target: target, Value: value}
}

func SetChecked(field, target string, checked bool) Instruction {
	value := "0"
	if checked {
		value = "1"
	}
	return Instruction{Op: OpSetChecked, Field: field, Target: target, Value: value, Checked: checked}
}

// SetBaseline replaces the value the control's watcher compares against
func SetBaseline(field, target, value string) Instruction {
	return Instruction{Op: OpSetBaseline, Field: field, Target: target, Value: value}
}

func Animate(field, target string, parent bool, anim Animation) Instruction {
	return Instruction{Op: OpAnimate, Field: field, Target: target, Parent: parent, Animation: &anim}
}

func FieldError(field, target, message string) Instruction {
	return Instruction{Op: OpFieldError, Field: field, Target: target, Message: message}
}

// Log is a diagnostic no-op on the client
func Log(message string) Instruction {
	return Instruction{Op: OpLog, Message: message}
}

// Payload is the body of one submit response
type Payload struct {
	Version      int           `json:"v"`
	RequestID    string        `json:"request_id,omitempty"`
	FormID       string        `json:"form,omitempty"`
	Instructions []Instruction `json:"instructions"`
}

// NewPayload creates an empty payload for the current schema version
func NewPayload(formID, requestID string) *Payload {
	return &Payload{
		Version:      SchemaVersion,
		RequestID:    requestID,
		FormID:       formID,
		Instructions: []Instruction{},
	}
}

// Add appends instructions in order
func (p *Payload) Add(instructions ...Instruction) {
	p.Instructions = append(p.Instructions, instructions...)
}

// Ops returns the op of every instruction, in order
func (p *Payload) Ops() []Op {
	ops := make([]Op, 0, len(p.Instructions))
	for _, in := range p.Instructions {
		ops = append(ops, in.Op)
	}
	return ops
}

// Count returns how many instructions have the given op
func (p *Payload) Count(op Op) int {
	n := 0
	for _, in := range p.Instructions {
		if in.Op == op {
			n++
		}
	}
	return n
}

// Script renders the payload as one JS block
func (p *Payload) Script() string {
	b := NewScriptBuilder(p.FormID)
	lines := make([]string, 0, len(p.Instructions))
	for _, in := range p.Instructions {
		lines = append(lines, b.BuildScript(in))
	}
	return strings.Join(lines, "\n")
}

// DecodePayload parses a payload and rejects unknown schema versions
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if p.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported payload version %d (want %d)", p.Version, SchemaVersion)
	}
	return &p, nil
}

// Fields returns the distinct fields of instructions with the given op, in order
func (p *Payload) Fields(op Op) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, in := range p.Instructions {
		if in.Op != op || in.Field == "" || seen[in.Field] {
			continue
		}
		seen[in.Field] = true
		fields = append(fields, in.Field)
	}
	return fields
}
