package autosave

import (
	"fmt"
	"sort"
)

// Entity is the record a form edits. Implementations belong to the
// persistence layer.
type Entity interface {
	Get(field string) any
	Set(field string, value any) error
	// Values returns the current value of every field
	Values() map[string]any
}

// MapEntity is an in-memory Entity
type MapEntity struct {
	values map[string]any
}

// NewMapEntity creates an entity holding a copy of values
func NewMapEntity(values map[string]any) *MapEntity {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapEntity{values: copied}
}

func (e *MapEntity) Get(field string) any {
	return e.values[field]
}

func (e *MapEntity) Set(field string, value any) error {
	if field == "" {
		return fmt.Errorf("field name must not be empty")
	}
	e.values[field] = value
	return nil
}

func (e *MapEntity) Values() map[string]any {
	copied := make(map[string]any, len(e.values))
	for k, v := range e.values {
		copied[k] = v
	}
	return copied
}

// Snapshot is an immutable field name to value mapping captured at one instant
type Snapshot struct {
	values map[string]any
}

// TakeSnapshot captures the entity's current values
func TakeSnapshot(e Entity) Snapshot {
	return NewSnapshot(e.Values())
}

// NewSnapshot creates a snapshot holding a copy of values
func NewSnapshot(values map[string]any) Snapshot {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied}
}

// Get returns the value captured for field
func (s Snapshot) Get(field string) (any, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Fields returns the captured field names, sorted
func (s Snapshot) Fields() []string {
	fields := make([]string, 0, len(s.values))
	for k := range s.values {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

func (s Snapshot) Len() int {
	return len(s.values)
}
