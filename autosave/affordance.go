package autosave

// AffordanceState is the visual state of the submit button
type AffordanceState int

const (
	AffordanceClean      AffordanceState = iota // Outline only, nothing to save
	AffordanceDirty                             // Highlighted, a change awaits submit
	AffordanceSubmitting                        // Highlighted and loading
)

func (s AffordanceState) String() string {
	switch s {
	case AffordanceDirty:
		return "dirty"
	case AffordanceSubmitting:
		return "submitting"
	default:
		return "clean"
	}
}

// affordance holds the state and notifies on transitions. Only the page
// mutates it, with the page lock held.
type affordance struct {
	state    AffordanceState
	onChange []func(from, to AffordanceState)
}

func (a *affordance) set(to AffordanceState) {
	if a.state == to {
		return
	}
	from := a.state
	a.state = to
	for _, fn := range a.onChange {
		fn(from, to)
	}
}
