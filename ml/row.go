package ml

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// AnswerSet maps a field name to the raw value a user submitted.
type AnswerSet map[string]any

// FeatureRow is an AnswerSet coerced to a schema's order and types.
type FeatureRow struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

func (r FeatureRow) Len() int { return len(r.Values) }

func (r FeatureRow) Get(name string) (float64, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Map returns the row keyed by column name.
func (r FeatureRow) Map() map[string]float64 {
	out := make(map[string]float64, len(r.Columns))
	for i, c := range r.Columns {
		out[c] = r.Values[i]
	}
	return out
}

// Head returns a row holding at most the first n columns.
func (r FeatureRow) Head(n int) FeatureRow {
	if n > len(r.Values) {
		n = len(r.Values)
	}
	return FeatureRow{Columns: r.Columns[:n], Values: r.Values[:n]}
}

// Key identifies the row values; two rows with equal columns and values share a key.
func (r FeatureRow) Key() string {
	var b strings.Builder
	for i, v := range r.Values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(formatValue(v))
	}
	return b.String()
}

// BoundPolicy decides what happens to a value outside its field's documented bound.
type BoundPolicy int

const (
	// BoundPassThrough keeps out-of-bound values as they are.
	BoundPassThrough BoundPolicy = iota
	BoundClamp
	BoundReject
)

func (p BoundPolicy) String() string {
	switch p {
	case BoundPassThrough:
		return "pass_through"
	case BoundClamp:
		return "clamp"
	case BoundReject:
		return "reject"
	default:
		return fmt.Sprintf("BoundPolicy(%d)", int(p))
	}
}

func ParseBoundPolicy(s string) (BoundPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pass_through", "passthrough":
		return BoundPassThrough, nil
	case "clamp":
		return BoundClamp, nil
	case "reject":
		return BoundReject, nil
	default:
		return 0, fmt.Errorf("unknown bound policy %q", s)
	}
}

// RowBuilder turns answer sets into feature rows for one schema.
type RowBuilder struct {
	schema *Schema
	policy BoundPolicy
	strict bool
}

type BuilderOption func(*RowBuilder)

func WithBoundPolicy(p BoundPolicy) BuilderOption {
	return func(b *RowBuilder) { b.policy = p }
}

// WithStrict makes malformed values an error instead of falling back to the default.
func WithStrict(strict bool) BuilderOption {
	return func(b *RowBuilder) { b.strict = strict }
}

func NewRowBuilder(schema *Schema, opts ...BuilderOption) *RowBuilder {
	b := &RowBuilder{schema: schema}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RowBuilder) Schema() *Schema { return b.schema }

func (b *RowBuilder) Policy() BoundPolicy { return b.policy }

func (b *RowBuilder) Strict() bool { return b.strict }

// Build returns a row with every schema field in schema order. Keys of answers
// that are not in the schema are ignored.
func (b *RowBuilder) Build(answers AnswerSet) (FeatureRow, error) {
	row := FeatureRow{
		Columns: b.schema.Names(),
		Values:  make([]float64, b.schema.Len()),
	}
	var errs error
	for i, f := range b.schema.fields {
		raw, present := answers[f.Name]
		if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
			present = false
		}
		if !present || raw == nil {
			row.Values[i] = f.Default
			continue
		}
		v, err := b.coerce(f, raw)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		row.Values[i] = v
	}
	if errs != nil {
		return FeatureRow{}, errs
	}
	return row, nil
}

func (b *RowBuilder) coerce(f Field, raw any) (float64, error) {
	var (
		v  float64
		ok bool
	)
	switch f.Kind {
	case KindBinary:
		v, ok = coerceBinary(raw)
	case KindCategory, KindCount:
		v, ok = coerceInt(raw)
	case KindFloat:
		v, ok = coerceFloat(raw)
	default:
		return f.Default, fmt.Errorf("field %s: unsupported kind %s", f.Name, f.Kind)
	}
	if !ok {
		if b.strict {
			return f.Default, fmt.Errorf("%w: %s=%v", ErrMalformedField, f.Name, raw)
		}
		if f.Kind == KindBinary {
			return 0, nil
		}
		return f.Default, nil
	}
	if f.Kind == KindBinary || f.Bound.Contains(v) {
		return v, nil
	}
	switch b.policy {
	case BoundClamp:
		return f.Bound.Clamp(v), nil
	case BoundReject:
		return v, fmt.Errorf("%w: %s=%s not in %s", ErrFieldOutOfRange, f.Name, formatValue(v), f.Bound)
	default:
		return v, nil
	}
}
