package autosave

// Option is one choice of a dropdown, lookup or radio control
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Control is an input widget bound to exactly one entity field
type Control struct {
	Field    string
	Kind     ControlKind
	Type     FieldType
	Label    string
	Options  []Option
	ReadOnly bool
	Disabled bool

	// HTMLID is assigned when the control is added to a form
	HTMLID string

	// Baseline is the input value the client compares edits against. Set at
	// render time and after every submit that changed the field.
	Baseline string
}

// NewControl creates a control for a field
func NewControl(field string, kind ControlKind, fieldType FieldType) *Control {
	return &Control{
		Field: field,
		Kind:  kind,
		Type:  fieldType,
		Label: field,
	}
}

// Tracked reports whether the control takes part in posting and diffing
func (c *Control) Tracked() bool {
	return !c.ReadOnly && !c.Disabled
}
