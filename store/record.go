package store

import (
	"context"
	"fmt"

	"github.com/zenibako/autosave-form/autosave"
)

// Record is one row of a form table. It implements autosave.Entity.
type Record struct {
	store   *Store
	table   string
	id      string
	columns map[string]autosave.FieldType
	values  map[string]any
}

func (r *Record) ID() string {
	return r.id
}

func (r *Record) Table() string {
	return r.table
}

// Get returns the value of field, nil when unset
func (r *Record) Get(field string) any {
	return r.values[field]
}

// Set changes field in memory; Save writes it
func (r *Record) Set(field string, value any) error {
	if _, ok := r.columns[field]; !ok {
		return fmt.Errorf("%s has no field %q", r.table, field)
	}
	r.values[field] = value
	return nil
}

// Values returns a copy of every field
func (r *Record) Values() map[string]any {
	values := make(map[string]any, len(r.columns))
	for field := range r.columns {
		values[field] = r.values[field]
	}
	return values
}

// Save writes the record to the database
func (r *Record) Save(ctx context.Context) error {
	return r.store.save(ctx, r)
}
