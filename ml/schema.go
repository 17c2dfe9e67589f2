package ml

import (
	"errors"
	"fmt"
)

// FieldKind tags how a raw answer is coerced into a feature value.
type FieldKind int

const (
	KindBinary FieldKind = iota
	KindCategory
	KindCount
	KindFloat
)

func (k FieldKind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindCategory:
		return "category"
	case KindCount:
		return "count"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Bound is an inclusive [Min, Max] range. A nil side is unbounded.
type Bound struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func between(lo, hi float64) Bound {
	return Bound{Min: &lo, Max: &hi}
}

func atLeast(lo float64) Bound {
	return Bound{Min: &lo}
}

func (b Bound) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

func (b Bound) Clamp(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		return *b.Min
	}
	if b.Max != nil && v > *b.Max {
		return *b.Max
	}
	return v
}

func (b Bound) String() string {
	lo, hi := "-inf", "+inf"
	if b.Min != nil {
		lo = formatValue(*b.Min)
	}
	if b.Max != nil {
		hi = formatValue(*b.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

type Field struct {
	Name    string    `json:"name"`
	Kind    FieldKind `json:"kind"`
	Default float64   `json:"default"`
	Bound   Bound     `json:"bound"`
	Label   string    `json:"label,omitempty"`
	Help    string    `json:"help,omitempty"`
}

// Schema is the ordered field list a trained model expects. It is never mutated
// after construction.
type Schema struct {
	target string
	fields []Field
	index  map[string]int
}

var (
	ErrEmptySchema     = errors.New("schema has no fields")
	ErrDuplicateField  = errors.New("duplicate field")
	ErrSchemaMismatch  = errors.New("feature row does not match model schema")
	ErrFieldOutOfRange = errors.New("field value out of range")
	ErrMalformedField  = errors.New("malformed field value")
	// ErrUndefinedScore is returned when extreme inputs drive a model score to NaN.
	ErrUndefinedScore = errors.New("model score is undefined for these inputs")
)

func NewSchema(target string, fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, ErrEmptySchema
	}
	s := &Schema{
		target: target,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

func (s *Schema) Target() string { return s.target }

func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the fields in schema order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Defaults returns the default value of every field keyed by name.
func (s *Schema) Defaults() map[string]float64 {
	out := make(map[string]float64, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = f.Default
	}
	return out
}

// Matches reports whether columns equal the schema names in the same order.
func (s *Schema) Matches(columns []string) bool {
	if len(columns) != len(s.fields) {
		return false
	}
	for i, c := range columns {
		if s.fields[i].Name != c {
			return false
		}
	}
	return true
}
