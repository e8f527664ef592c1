package autosave

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// FieldChange records a control whose value differs between two snapshots
type FieldChange struct {
	Control *Control
	Before  Canonical
	After   Canonical
}

// Diff returns the controls whose normalized value differs between pre and
// post, in control declaration order. Read-only and disabled controls are
// never reported.
func Diff(pre, post Snapshot, controls []*Control, p Persistence) []*Control {
	changes := Changes(pre, post, controls, p)
	changed := make([]*Control, 0, len(changes))
	for _, change := range changes {
		changed = append(changed, change.Control)
	}
	return changed
}

// Changes is Diff with the before and after values of every changed control
func Changes(pre, post Snapshot, controls []*Control, p Persistence) []FieldChange {
	var changes []FieldChange

	for _, c := range controls {
		if !c.Tracked() {
			continue
		}

		before, _ := pre.Get(c.Field)
		after, _ := post.Get(c.Field)

		beforeCanon, errBefore := p.Normalize(c.Type, before)
		afterCanon, errAfter := p.Normalize(c.Type, after)
		if errBefore != nil || errAfter != nil {
			log.Warn("Could not normalize field, comparing raw values",
				"field", c.Field, "type", c.Type, "before_error", errBefore, "after_error", errAfter)
			beforeCanon = Canonical{Text: fmt.Sprint(before), Null: before == nil}
			afterCanon = Canonical{Text: fmt.Sprint(after), Null: after == nil}
		}

		if beforeCanon != afterCanon {
			log.Debug("Field changed during submit", "field", c.Field, "before", beforeCanon, "after", afterCanon)
			changes = append(changes, FieldChange{Control: c, Before: beforeCanon, After: afterCanon})
		}
	}

	return changes
}
