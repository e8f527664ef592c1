package autosave

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/zenibako/autosave-form/messages"
)

// Composer builds submit response payloads for one form
type Composer struct {
	builder   *messages.ScriptBuilder
	animation messages.Animation
}

// NewComposer creates a composer that flashes updated controls with anim
func NewComposer(formID string, anim messages.Animation) *Composer {
	return &Composer{
		builder:   messages.NewScriptBuilder(formID),
		animation: anim,
	}
}

// Compose builds the success payload: consumer instructions first, then the
// affordance reset, then one update procedure per changed control.
func (c *Composer) Compose(requestID string, consumer []messages.Instruction, changes []FieldChange) *messages.Payload {
	payload := messages.NewPayload(c.formID(), requestID)
	payload.Add(consumer...)
	payload.Add(messages.AffordanceClean(c.builder.AffordanceSelector()))

	for _, change := range changes {
		value := ""
		if !change.After.Null {
			value = change.After.Text
		}
		payload.Add(c.UpdateInstructions(change.Control, value)...)
	}

	return payload
}

// UpdateInstructions pushes value into a live control and flashes it. Kinds
// without an update procedure get a diagnostic instead.
func (c *Composer) UpdateInstructions(ctrl *Control, value string) []messages.Instruction {
	behavior, ok := kinds[ctrl.Kind]
	if !ok {
		log.Warn("No update procedure for control kind", "field", ctrl.Field, "kind", ctrl.Kind)
		return []messages.Instruction{
			messages.Log(fmt.Sprintf("Automatic control update for %s (%s) not implemented yet", ctrl.Field, ctrl.Kind)),
		}
	}

	instructions := behavior.update(c.builder, ctrl, value)
	target, parent := behavior.animation(c.builder, ctrl)
	return append(instructions, messages.Animate(ctrl.Field, target, parent, c.animation))
}

// ComposeErrors builds the failure payload. A failing field without a
// control is returned as an *UnboundFieldError instead.
func (c *Composer) ComposeErrors(requestID string, verr *ValidationError, controls []*Control) (*messages.Payload, error) {
	byField := make(map[string]*Control, len(controls))
	for _, ctrl := range controls {
		byField[ctrl.Field] = ctrl
	}

	for _, field := range verr.Fields() {
		if _, ok := byField[field]; !ok {
			return nil, &UnboundFieldError{Field: field, Err: verr}
		}
	}

	payload := messages.NewPayload(c.formID(), requestID)
	payload.Add(messages.AffordanceDirty(c.builder.AffordanceSelector()))
	for _, ctrl := range controls {
		if message, ok := verr.Errors[ctrl.Field]; ok {
			payload.Add(messages.FieldError(ctrl.Field, c.builder.FormSelector(), message))
		}
	}

	return payload, nil
}

func (c *Composer) formID() string {
	return c.builder.FormID()
}
