package autosave

import (
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/autosave-form/messages"
)

// Effects are the DOM side effects a page cannot express as control state
type Effects interface {
	Animate(field, target string, parent bool, anim messages.Animation)
	ShowError(field, message string)
	Log(message string)
	Script(js string)
}

type logEffects struct{}

func (logEffects) Animate(field, target string, parent bool, anim messages.Animation) {
	log.Debug("Flash updated control", "field", field, "target", target, "duration_ms", anim.DurationMS)
}

func (logEffects) ShowError(field, message string) {
	log.Warn("Field error", "field", field, "message", message)
}

func (logEffects) Log(message string) {
	log.Info(message)
}

func (logEffects) Script(js string) {
	log.Debug("Consumer script", "script", js)
}

// Page is the client side of one rendered form: a watcher per control, the
// submit coordinator and the affordance. Every entry point runs under one
// lock, so the page behaves like the single UI thread it models.
type Page struct {
	mu          sync.Mutex
	formID      string
	config      Config
	scheduler   Scheduler
	effects     Effects
	watchers    []*Watcher
	byField     map[string]*Watcher
	coordinator *Coordinator
	affordance  affordance
	forcedDirty bool
	outbox      []func()
}

// NewPage creates the client side of a form from its exported config
func NewPage(cc ClientConfig, transport Transport, scheduler Scheduler) *Page {
	if scheduler == nil {
		scheduler = SystemScheduler()
	}

	cfg := DefaultConfig()
	cfg.DebounceWindow = time.Duration(cc.DebounceMS) * time.Millisecond
	cfg.MinSubmitting = time.Duration(cc.MinSubmittingMS) * time.Millisecond
	cfg.InterruptInFlight = cc.InterruptInFlight
	if len(cc.Animation.Keyframes) > 0 {
		cfg.Animation = cc.Animation
	}

	p := &Page{
		formID:    cc.Form,
		config:    cfg,
		scheduler: scheduler,
		effects:   logEffects{},
		byField:   make(map[string]*Watcher),
	}
	p.coordinator = &Coordinator{page: p, transport: transport}

	for _, cc := range cc.Controls {
		kind := ControlKind(cc.Kind)
		if cc.ReadOnly || cc.Disabled {
			continue
		}
		if !kind.Supported() {
			log.Debug("No watcher for unsupported control", "field", cc.Field, "kind", cc.Kind)
			continue
		}
		w := &Watcher{
			page:     p,
			field:    cc.Field,
			kind:     kind,
			value:    cc.Baseline,
			baseline: cc.Baseline,
		}
		p.watchers = append(p.watchers, w)
		p.byField[cc.Field] = w
	}

	return p
}

// SetEffects replaces the side effect sink, which logs by default
func (p *Page) SetEffects(e Effects) {
	p.do(func() { p.effects = e })
}

// OnAffordanceChange registers a callback for affordance transitions. It
// runs with the page locked and must not call back into the page.
func (p *Page) OnAffordanceChange(fn func(from, to AffordanceState)) {
	p.do(func() { p.affordance.onChange = append(p.affordance.onChange, fn) })
}

// Watcher returns the watcher of field
func (p *Page) Watcher(field string) (*Watcher, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.byField[field]
	return w, ok
}

// Affordance returns the current affordance state
func (p *Page) Affordance() AffordanceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.affordance.state
}

// Submit is the explicit submit action, e.g. a click on the affordance
func (p *Page) Submit() {
	p.do(func() {
		for _, w := range p.watchers {
			w.flushLocked()
		}
		p.coordinator.requestLocked()
	})
}

// Values returns what the next submit would post
func (p *Page) Values() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valuesLocked()
}

// Errors returns the field errors currently shown
func (p *Page) Errors() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := make(map[string]string)
	for _, w := range p.watchers {
		if w.err != "" {
			errs[w.field] = w.err
		}
	}
	return errs
}

// InFlight reports whether a submit request is outstanding
func (p *Page) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coordinator.inFlight != nil
}

// Apply applies a server payload outside of a submit cycle
func (p *Page) Apply(payload *messages.Payload) {
	p.do(func() {
		p.applyLocked(payload, nil)
		p.refreshAffordanceLocked()
	})
}

// do runs fn under the page lock, then runs queued work (transport sends,
// request cancellation) after unlocking
func (p *Page) do(fn func()) {
	p.mu.Lock()
	fn()
	outbox := p.outbox
	p.outbox = nil
	p.mu.Unlock()

	for _, f := range outbox {
		f()
	}
}

func (p *Page) enqueue(f func()) {
	p.outbox = append(p.outbox, f)
}

func (p *Page) valuesLocked() url.Values {
	values := url.Values{}
	for _, w := range p.watchers {
		if w.detached {
			continue
		}
		if w.kind == KindCheckbox {
			if w.value == "1" {
				values.Set(w.field, "1")
			}
			continue
		}
		values.Set(w.field, w.value)
	}
	return values
}

// markDirtyLocked highlights the affordance unless a submit is showing
func (p *Page) markDirtyLocked() {
	if p.affordance.state != AffordanceSubmitting {
		p.affordance.set(AffordanceDirty)
	}
}

// refreshAffordanceLocked derives the affordance from the page state. It is
// never clean while a control differs from its baseline.
func (p *Page) refreshAffordanceLocked() {
	switch {
	case p.coordinator.inFlight != nil:
		p.affordance.set(AffordanceSubmitting)
	case p.forcedDirty || p.divergedLocked():
		p.affordance.set(AffordanceDirty)
	default:
		p.affordance.set(AffordanceClean)
	}
}

func (p *Page) divergedLocked() bool {
	for _, w := range p.watchers {
		if !w.detached && w.value != w.baseline {
			return true
		}
	}
	return false
}

// applyLocked applies payload instructions. sent holds the values posted by
// the request the payload answers; a control edited since then keeps the
// user's value.
func (p *Page) applyLocked(payload *messages.Payload, sent url.Values) {
	if payload == nil {
		return
	}

	skipped := make(map[string]bool)

	for _, in := range payload.Instructions {
		switch in.Op {
		case messages.OpScript:
			p.effects.Script(in.Script)

		case messages.OpAffordanceClean:
			p.forcedDirty = false
			for _, w := range p.watchers {
				w.err = ""
			}

		case messages.OpAffordanceDirty:
			p.forcedDirty = true

		case messages.OpSetInputValue, messages.OpSelectDropdown, messages.OpCheckRadio, messages.OpSetChecked:
			w, ok := p.byField[in.Field]
			if !ok || w.detached {
				continue
			}
			if sent != nil && !w.matchesPosted(sent) {
				log.Debug("Keeping newer user value over server update", "field", in.Field)
				skipped[in.Field] = true
				continue
			}
			w.value = in.Value
			if !w.kind.TracksBaseline() {
				w.baseline = in.Value
			}

		case messages.OpSetBaseline:
			w, ok := p.byField[in.Field]
			if !ok || w.detached || skipped[in.Field] {
				continue
			}
			w.baseline = in.Value

		case messages.OpAnimate:
			if skipped[in.Field] {
				continue
			}
			anim := p.config.Animation
			if in.Animation != nil {
				anim = *in.Animation
			}
			p.effects.Animate(in.Field, in.Target, in.Parent, anim)

		case messages.OpFieldError:
			if w, ok := p.byField[in.Field]; ok {
				w.err = in.Message
			}
			p.effects.ShowError(in.Field, in.Message)

		case messages.OpLog:
			p.effects.Log(in.Message)

		default:
			log.Debug("Ignoring unknown instruction", "op", in.Op)
		}
	}
}

// matchesPosted reports whether the watcher still holds the value it posted
func (w *Watcher) matchesPosted(sent url.Values) bool {
	if w.kind == KindCheckbox {
		return (w.value == "1") == (sent.Get(w.field) == "1")
	}
	return w.value == sent.Get(w.field)
}
