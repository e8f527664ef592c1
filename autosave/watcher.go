package autosave

import (
	"github.com/charmbracelet/log"
)

// Watcher turns edits of one control into submits according to the
// control's trigger policy. It owns the control's baseline and its pending
// debounce timer.
type Watcher struct {
	page     *Page
	field    string
	kind     ControlKind
	value    string
	baseline string
	timer    Timer
	timerSeq int
	detached bool
	err      string
}

func (w *Watcher) Field() string {
	return w.field
}

func (w *Watcher) Kind() ControlKind {
	return w.kind
}

// Value returns the control's current raw value
func (w *Watcher) Value() string {
	w.page.mu.Lock()
	defer w.page.mu.Unlock()
	return w.value
}

// Baseline returns the value edits are compared against
func (w *Watcher) Baseline() string {
	w.page.mu.Lock()
	defer w.page.mu.Unlock()
	return w.baseline
}

// Pending reports whether a debounce timer is running
func (w *Watcher) Pending() bool {
	w.page.mu.Lock()
	defer w.page.mu.Unlock()
	return w.timer != nil
}

// Input handles a keystroke-level edit of a text line, textarea or the
// calendar's free-text input
func (w *Watcher) Input(raw string) {
	w.page.do(func() {
		if w.detached {
			return
		}
		switch w.kind.Trigger() {
		case TriggerDebounced, TriggerCombined:
		default:
			log.Debug("Ignoring input event on discrete control", "field", w.field, "kind", w.kind)
			return
		}

		w.value = raw
		if raw != w.baseline {
			w.page.markDirtyLocked()
			w.restartTimerLocked()
			return
		}

		// Reverted before the timer fired
		w.stopTimerLocked()
		w.page.refreshAffordanceLocked()
	})
}

// Change handles a committed change: a dropdown, lookup, radio or checkbox
// selection, or a date picked in the calendar widget
func (w *Watcher) Change(raw string) {
	w.page.do(func() {
		if w.detached {
			return
		}
		if w.kind.Trigger() == TriggerDebounced {
			// Text controls submit through their debounce only
			w.value = raw
			if raw != w.baseline {
				w.page.markDirtyLocked()
				w.restartTimerLocked()
				return
			}
			w.stopTimerLocked()
			w.page.refreshAffordanceLocked()
			return
		}

		w.stopTimerLocked()
		w.value = raw
		w.page.markDirtyLocked()
		w.baseline = raw
		w.page.coordinator.requestLocked()
	})
}

// ValueUpdated handles the calendar widget stepping its value with the arrow
// keys. It highlights the affordance without submitting.
func (w *Watcher) ValueUpdated(raw string) {
	w.page.do(func() {
		if w.detached {
			return
		}
		w.value = raw
		if raw != w.baseline {
			w.page.markDirtyLocked()
		}
	})
}

// Blur submits a divergence that has not been submitted yet
func (w *Watcher) Blur() {
	w.page.do(func() {
		if w.detached || w.value == w.baseline {
			return
		}
		w.flushLocked()
		w.page.coordinator.requestLocked()
	})
}

// KeyDown reports whether the key's default action must be prevented. Enter
// is swallowed on single-line inputs so it cannot submit the whole form.
func (w *Watcher) KeyDown(key string) bool {
	return key == "Enter" && w.kind.SuppressesEnter()
}

// Detach stops watching, e.g. when the control is re-rendered
func (w *Watcher) Detach() {
	w.page.do(func() {
		w.stopTimerLocked()
		w.detached = true
	})
}

// flushLocked takes a pending divergence as submitted
func (w *Watcher) flushLocked() {
	if w.detached {
		return
	}
	w.stopTimerLocked()
	w.baseline = w.value
}

func (w *Watcher) restartTimerLocked() {
	w.stopTimerLocked()
	w.timerSeq++
	seq := w.timerSeq
	w.timer = w.page.scheduler.AfterFunc(w.page.config.DebounceWindow, func() {
		w.page.do(func() { w.fireLocked(seq) })
	})
}

func (w *Watcher) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// fireLocked runs when the debounce window elapses. A timer that was
// replaced or outlived its control does nothing.
func (w *Watcher) fireLocked(seq int) {
	if w.detached || seq != w.timerSeq || w.timer == nil {
		return
	}
	w.timer = nil
	w.baseline = w.value
	log.Debug("Debounce elapsed, submitting", "field", w.field)
	w.page.coordinator.requestLocked()
}
