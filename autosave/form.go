package autosave

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/zenibako/autosave-form/messages"
)

// SubmitContext is handed to the submit hook with the posted values loaded
type SubmitContext struct {
	Context   context.Context
	Form      *Form
	Entity    Entity
	RequestID string
}

// SubmitFunc is the business logic run on every submit. It usually saves the
// entity, may change field values, and may return extra client instructions.
// Returning a *ValidationError shows the errors in the form.
type SubmitFunc func(sc *SubmitContext) ([]messages.Instruction, error)

// Form is a set of controls bound to one entity that submits itself on change
type Form struct {
	id          string
	entity      Entity
	controls    []*Control
	byField     map[string]*Control
	onSubmit    SubmitFunc
	persistence Persistence
	config      Config
	notifier    Notifier
	builder     *messages.ScriptBuilder
}

// NewForm creates a form editing entity
func NewForm(id string, entity Entity) *Form {
	return &Form{
		id:          id,
		entity:      entity,
		byField:     make(map[string]*Control),
		persistence: NewUIPersistence(),
		config:      DefaultConfig(),
		builder:     messages.NewScriptBuilder(id),
	}
}

func (f *Form) ID() string {
	return f.id
}

func (f *Form) Entity() Entity {
	return f.entity
}

// AddControl binds a control to the form and assigns its html id
func (f *Form) AddControl(c *Control) error {
	if c.Field == "" {
		return fmt.Errorf("control needs a field name")
	}
	if _, exists := f.byField[c.Field]; exists {
		return fmt.Errorf("duplicate control for field %q", c.Field)
	}
	if !c.Kind.Supported() {
		log.Warn("Control kind has no auto submit support", "field", c.Field, "kind", c.Kind)
	}

	c.HTMLID = fmt.Sprintf("%s_%s", f.id, c.Field)
	c.Baseline = InputValue(f.persistence, c.Type, f.entity.Get(c.Field))
	f.controls = append(f.controls, c)
	f.byField[c.Field] = c
	return nil
}

// Control returns the control bound to field
func (f *Form) Control(field string) (*Control, bool) {
	c, ok := f.byField[field]
	return c, ok
}

// Controls returns the controls in declaration order
func (f *Form) Controls() []*Control {
	controls := make([]*Control, len(f.controls))
	copy(controls, f.controls)
	return controls
}

// OnSubmit registers the business logic run on every submit
func (f *Form) OnSubmit(fx SubmitFunc) {
	f.onSubmit = fx
}

func (f *Form) SetConfig(cfg Config) {
	f.config = cfg
}

func (f *Form) Config() Config {
	return f.config
}

// SetPersistence replaces the normalization used for loading and diffing
func (f *Form) SetPersistence(p Persistence) {
	f.persistence = p
	for _, c := range f.controls {
		c.Baseline = InputValue(p, c.Type, f.entity.Get(c.Field))
	}
}

// SetNotifier publishes changed fields after every successful submit
func (f *Form) SetNotifier(n Notifier) {
	f.notifier = n
}

// LoadPost writes posted values into the entity. Read-only and disabled
// controls are never loaded. An absent checkbox means unchecked; any other
// absent field keeps its value.
func (f *Form) LoadPost(values url.Values) error {
	verr := &ValidationError{}

	for _, c := range f.controls {
		if !c.Tracked() {
			continue
		}

		raw, posted := values[c.Field]
		if !posted {
			if c.Kind != KindCheckbox {
				continue
			}
			raw = []string{""}
		}

		value, err := f.persistence.ParseInput(c.Type, raw[len(raw)-1])
		if err != nil {
			verr.Add(c.Field, err.Error())
			continue
		}
		if err := f.entity.Set(c.Field, value); err != nil {
			return fmt.Errorf("failed to load field %s: %w", c.Field, err)
		}
	}

	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

// Submit runs one submit cycle: load the posted values, snapshot, run the
// submit hook, snapshot again, and compose the instructions that bring the
// client up to date.
func (f *Form) Submit(ctx context.Context, values url.Values) (*messages.Payload, error) {
	requestID := ulid.Make().String()
	composer := NewComposer(f.id, f.config.Animation)
	started := time.Now()

	log.Debug("Form submitted", "form", f.id, "request", requestID, "fields", len(values))

	if err := f.LoadPost(values); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			log.Info("Posted values failed to load", "form", f.id, "request", requestID, "error", verr)
			return composer.ComposeErrors(requestID, verr, f.controls)
		}
		return nil, err
	}

	pre := TakeSnapshot(f.entity)

	var consumer []messages.Instruction
	if f.onSubmit != nil {
		var err error
		consumer, err = f.onSubmit(&SubmitContext{
			Context:   ctx,
			Form:      f,
			Entity:    f.entity,
			RequestID: requestID,
		})
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				log.Info("Submit rejected by validation", "form", f.id, "request", requestID, "error", verr)
				return composer.ComposeErrors(requestID, verr, f.controls)
			}
			return nil, fmt.Errorf("submit hook failed: %w", err)
		}
	}

	post := TakeSnapshot(f.entity)
	changes := Changes(pre, post, f.controls, f.persistence)
	payload := composer.Compose(requestID, consumer, changes)

	for _, change := range changes {
		if change.After.Null {
			change.Control.Baseline = ""
		} else {
			change.Control.Baseline = change.After.Text
		}
	}

	if f.notifier != nil && len(changes) > 0 {
		if err := f.notifier.FieldsChanged(f.id, changes); err != nil {
			log.Warnf("Failed to publish changed fields for %s: %v", f.id, err)
		}
	}

	log.Info("Submit complete", "form", f.id, "request", requestID,
		"changed", len(changes), "instructions", len(payload.Instructions), "took", time.Since(started))
	return payload, nil
}

// ClientControl is the client runtime's view of a control
type ClientControl struct {
	Field         string   `json:"field"`
	Kind          string   `json:"kind"`
	Trigger       string   `json:"trigger"`
	InputTag      string   `json:"input_tag"`
	Selector      string   `json:"selector"`
	Baseline      string   `json:"baseline"`
	SuppressEnter bool     `json:"suppress_enter,omitempty"`
	ReadOnly      bool     `json:"readonly,omitempty"`
	Disabled      bool     `json:"disabled,omitempty"`
	Label         string   `json:"label,omitempty"`
	Options       []Option `json:"options,omitempty"`
}

// ClientConfig is everything the client runtime needs to watch a form
type ClientConfig struct {
	Form              string             `json:"form"`
	Affordance        string             `json:"affordance"`
	DebounceMS        int                `json:"debounce_ms"`
	MinSubmittingMS   int                `json:"min_submitting_ms"`
	InterruptInFlight bool               `json:"interrupt_in_flight,omitempty"`
	Animation         messages.Animation `json:"animation"`
	Controls          []ClientControl    `json:"controls"`
}

// ClientConfig exports the controls and timing options for the client
func (f *Form) ClientConfig() ClientConfig {
	cfg := ClientConfig{
		Form:              f.id,
		Affordance:        f.builder.AffordanceSelector(),
		DebounceMS:        int(f.config.DebounceWindow / time.Millisecond),
		MinSubmittingMS:   int(f.config.MinSubmitting / time.Millisecond),
		InterruptInFlight: f.config.InterruptInFlight,
		Animation:         f.config.Animation,
		Controls:          make([]ClientControl, 0, len(f.controls)),
	}

	for _, c := range f.controls {
		cfg.Controls = append(cfg.Controls, ClientControl{
			Field:         c.Field,
			Kind:          string(c.Kind),
			Trigger:       c.Kind.Trigger().String(),
			InputTag:      c.Kind.InputTag(),
			Selector:      f.builder.BuildSelector(messages.SelControl, map[string]string{"id": c.HTMLID}),
			Baseline:      c.Baseline,
			SuppressEnter: c.Kind.SuppressesEnter(),
			ReadOnly:      c.ReadOnly,
			Disabled:      c.Disabled,
			Label:         c.Label,
			Options:       c.Options,
		})
	}

	return cfg
}
