package autosave

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldType is the persistence type of an entity field
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeText     FieldType = "text"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeTime     FieldType = "time"
)

// Canonical layouts for temporal fields
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	TimeLayout     = "15:04:05"
)

// Canonical is a field value in its external representation. Two values of
// the same field are equal exactly when their Canonical forms are ==.
type Canonical struct {
	Text string
	Null bool
}

// NullCanonical is the canonical form of an absent value
var NullCanonical = Canonical{Null: true}

func (c Canonical) String() string {
	if c.Null {
		return "<null>"
	}
	return c.Text
}

// Persistence converts field values between the posted, in-memory and
// canonical forms
type Persistence interface {
	// Normalize returns the canonical form of v for a field of type t
	Normalize(t FieldType, v any) (Canonical, error)
	// ParseInput turns a posted raw string into the in-memory value
	ParseInput(t FieldType, raw string) (any, error)
}

// UIPersistence is the default Persistence used by forms
type UIPersistence struct {
	Location *time.Location
}

// NewUIPersistence creates a persistence that interprets zone-less times in UTC
func NewUIPersistence() UIPersistence {
	return UIPersistence{Location: time.UTC}
}

func (p UIPersistence) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// InputValue renders v the way the control's input element holds it
func InputValue(p Persistence, t FieldType, v any) string {
	c, err := p.Normalize(t, v)
	if err != nil || c.Null {
		return ""
	}
	return c.Text
}

// ParseInput implements Persistence
func (p UIPersistence) ParseInput(t FieldType, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)

	switch t {
	case TypeString, TypeText, "":
		return raw, nil
	case TypeInteger:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a whole number")
		}
		return n, nil
	case TypeFloat:
		if trimmed == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return f, nil
	case TypeBoolean:
		b, ok := parseBool(trimmed)
		if !ok {
			return nil, fmt.Errorf("must be a yes/no value")
		}
		return b, nil
	case TypeDate, TypeDateTime, TypeTime:
		if trimmed == "" {
			return nil, nil
		}
		tm, err := p.parseTemporal(t, trimmed)
		if err != nil {
			return nil, err
		}
		return tm, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

// Normalize implements Persistence
func (p UIPersistence) Normalize(t FieldType, v any) (Canonical, error) {
	if v == nil {
		return NullCanonical, nil
	}

	switch t {
	case TypeString, TypeText, "":
		s := stringify(v)
		if s == "" {
			return NullCanonical, nil
		}
		return Canonical{Text: s}, nil

	case TypeInteger:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return NullCanonical, nil
		}
		n, err := toInt64(v)
		if err != nil {
			return Canonical{}, err
		}
		return Canonical{Text: strconv.FormatInt(n, 10)}, nil

	case TypeFloat:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return NullCanonical, nil
		}
		f, err := toFloat64(v)
		if err != nil {
			return Canonical{}, err
		}
		return Canonical{Text: strconv.FormatFloat(f, 'g', -1, 64)}, nil

	case TypeBoolean:
		// "" is an unchecked checkbox, not Null
		b, ok := toBool(v)
		if !ok {
			return Canonical{}, fmt.Errorf("cannot use %T %v as boolean", v, v)
		}
		if b {
			return Canonical{Text: "1"}, nil
		}
		return Canonical{Text: "0"}, nil

	case TypeDate, TypeDateTime, TypeTime:
		var tm time.Time
		switch value := v.(type) {
		case time.Time:
			tm = value
		case *time.Time:
			if value == nil {
				return NullCanonical, nil
			}
			tm = *value
		case string:
			if strings.TrimSpace(value) == "" {
				return NullCanonical, nil
			}
			parsed, err := p.parseTemporal(t, strings.TrimSpace(value))
			if err != nil {
				return Canonical{}, err
			}
			tm = parsed
		default:
			return Canonical{}, fmt.Errorf("cannot use %T as %s", v, t)
		}
		return Canonical{Text: p.formatTemporal(t, tm)}, nil

	default:
		return Canonical{}, fmt.Errorf("unknown field type %q", t)
	}
}

func (p UIPersistence) formatTemporal(t FieldType, tm time.Time) string {
	switch t {
	case TypeDate:
		// Dates carry no zone; keep the calendar day as written
		return tm.Format(DateLayout)
	case TypeTime:
		return tm.Format(TimeLayout)
	default:
		return tm.In(p.location()).Format(DateTimeLayout)
	}
}

func (p UIPersistence) parseTemporal(t FieldType, s string) (time.Time, error) {
	var layouts []string
	switch t {
	case TypeDate:
		layouts = []string{DateLayout, time.RFC3339, DateTimeLayout}
	case TypeTime:
		layouts = []string{TimeLayout, "15:04", "3:04 PM", "3:04PM"}
	default:
		layouts = []string{DateTimeLayout, "2006-01-02 15:04", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", DateLayout}
	}

	for _, layout := range layouts {
		if tm, err := time.ParseInLocation(layout, s, p.location()); err == nil {
			return tm, nil
		}
	}

	switch t {
	case TypeDate:
		return time.Time{}, fmt.Errorf("must be a date (YYYY-MM-DD)")
	case TypeTime:
		return time.Time{}, fmt.Errorf("must be a time (HH:MM)")
	default:
		return time.Time{}, fmt.Errorf("must be a date and time (YYYY-MM-DD HH:MM)")
	}
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", n)
		}
		return int64(n), nil
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	case json.Number:
		return n.Int64()
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as integer", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cannot use %T as integer", v)
	}
}

func integralFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("cannot use %v as integer", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as float", n)
		}
		return parsed, nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("cannot use %T as float", v)
		}
		return float64(i), nil
	}
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		return parseBool(strings.TrimSpace(b))
	default:
		if n, err := toInt64(v); err == nil {
			return n != 0, true
		}
		return false, false
	}
}

// parseBool accepts the spellings checkboxes and databases use. An empty
// string is an unchecked checkbox.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no", "":
		return false, true
	default:
		return false, false
	}
}
