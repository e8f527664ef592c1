package templates

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zenibako/autosave-form/autosave"
)

// ControlTemplate describes one control of a form
type ControlTemplate struct {
	Field    string            `json:"field"`              // Entity field the control edits
	Kind     string            `json:"kind"`               // Control kind: "line", "dropdown", "checkbox", etc.
	Type     string            `json:"type"`               // Persistence type: "string", "integer", "boolean", etc.
	Label    string            `json:"label,omitempty"`    // Caption shown next to the control
	Options  []autosave.Option `json:"options,omitempty"`  // Choices for dropdown, lookup and radio
	ReadOnly bool              `json:"readonly,omitempty"` // Shown but never submitted
	Disabled bool              `json:"disabled,omitempty"` // Shown greyed out, never submitted
	Default  any               `json:"default,omitempty"`  // Value of the field in a new record
}

// FormTemplate describes a form and the table its records live in
type FormTemplate struct {
	Name     string            `json:"name"`
	Table    string            `json:"table"`
	Controls []ControlTemplate `json:"controls"`
}

// ParseFormTemplate reads a JSON form template
func ParseFormTemplate(data []byte) (*FormTemplate, error) {
	var tmpl FormTemplate
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse form template: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadFormTemplate reads a JSON form template file
func LoadFormTemplate(path string) (*FormTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form template %s: %w", path, err)
	}
	return ParseFormTemplate(data)
}

// Validate checks names, kinds, types and options
func (t *FormTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("form template needs a name")
	}
	if t.Table == "" {
		t.Table = t.Name
	}
	if len(t.Controls) == 0 {
		return fmt.Errorf("form template %s has no controls", t.Name)
	}

	seen := make(map[string]bool)
	for i, c := range t.Controls {
		if c.Field == "" {
			return fmt.Errorf("control %d of %s has no field", i, t.Name)
		}
		if seen[c.Field] {
			return fmt.Errorf("field %s appears twice in %s", c.Field, t.Name)
		}
		seen[c.Field] = true

		if !knownType(autosave.FieldType(c.Type)) {
			return fmt.Errorf("field %s has unknown type %q", c.Field, c.Type)
		}
		switch autosave.ControlKind(c.Kind) {
		case autosave.KindDropdown, autosave.KindRadio:
			if len(c.Options) == 0 {
				return fmt.Errorf("%s field %s needs options", c.Kind, c.Field)
			}
		case "":
			return fmt.Errorf("field %s has no kind", c.Field)
		}
	}
	return nil
}

// Defaults returns the default value of every field that has one
func (t *FormTemplate) Defaults() map[string]any {
	defaults := make(map[string]any)
	for _, c := range t.Controls {
		if c.Default != nil {
			defaults[c.Field] = c.Default
		}
	}
	return defaults
}

// Columns returns field -> type for every control
func (t *FormTemplate) Columns() map[string]autosave.FieldType {
	columns := make(map[string]autosave.FieldType, len(t.Controls))
	for _, c := range t.Controls {
		columns[c.Field] = autosave.FieldType(c.Type)
	}
	return columns
}

// Build creates a form with the template's controls bound to entity
func (t *FormTemplate) Build(formID string, entity autosave.Entity) (*autosave.Form, error) {
	form := autosave.NewForm(formID, entity)

	for _, c := range t.Controls {
		ctrl := autosave.NewControl(c.Field, autosave.ControlKind(c.Kind), autosave.FieldType(c.Type))
		ctrl.Label = c.Label
		ctrl.Options = c.Options
		ctrl.ReadOnly = c.ReadOnly
		ctrl.Disabled = c.Disabled
		if err := form.AddControl(ctrl); err != nil {
			return nil, fmt.Errorf("failed to add control %s: %w", c.Field, err)
		}
	}

	return form, nil
}

func knownType(t autosave.FieldType) bool {
	switch t {
	case autosave.TypeString, autosave.TypeText, autosave.TypeInteger, autosave.TypeFloat,
		autosave.TypeBoolean, autosave.TypeDate, autosave.TypeDateTime, autosave.TypeTime:
		return true
	}
	return false
}

// DemoTemplate returns the demo form: one control of every supported kind
func DemoTemplate() *FormTemplate {
	choices := []autosave.Option{
		{Value: "0", Label: "No"},
		{Value: "1", Label: "Yes"},
		{Value: "2", Label: "Maybe"},
	}

	return &FormTemplate{
		Name:  "demo",
		Table: "demo",
		Controls: []ControlTemplate{
			{Field: "line", Kind: "line", Type: "string", Label: "Line"},
			{Field: "textarea", Kind: "textarea", Type: "text", Label: "Text"},
			{Field: "checkbox", Kind: "checkbox", Type: "boolean", Label: "Checkbox", Default: false},
			{Field: "datetime", Kind: "calendar", Type: "datetime", Label: "Date and time"},
			{Field: "date", Kind: "calendar", Type: "date", Label: "Date"},
			{Field: "time", Kind: "calendar", Type: "time", Label: "Time"},
			{Field: "dropdown", Kind: "dropdown", Type: "integer", Label: "Dropdown", Options: choices, Default: 0},
			{Field: "radio", Kind: "radio", Type: "integer", Label: "Radio", Options: choices, Default: 0},
		},
	}
}
