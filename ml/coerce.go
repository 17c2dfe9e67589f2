package ml

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var truthy = map[string]struct{}{
	"1": {}, "yes": {}, "y": {}, "true": {}, "t": {}, "on": {}, "yes (1)": {},
}

var falsy = map[string]struct{}{
	"0": {}, "no": {}, "n": {}, "false": {}, "f": {}, "off": {}, "no (0)": {}, "": {},
}

// coerceBinary maps a raw answer to 0 or 1. recognized is false when the value
// is neither a truthy nor a falsy representation.
func coerceBinary(v any) (value float64, recognized bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := cases.Fold().String(strings.TrimSpace(x))
		if _, ok := truthy[s]; ok {
			return 1, true
		}
		if _, ok := falsy[s]; ok {
			return 0, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return binaryFromNumber(f)
		}
		return 0, false
	}
	if f, ok := toFloat(v); ok {
		return binaryFromNumber(f)
	}
	return 0, false
}

func binaryFromNumber(f float64) (float64, bool) {
	switch f {
	case 1:
		return 1, true
	case 0:
		return 0, true
	default:
		return 0, false
	}
}

// coerceInt truncates toward zero.
func coerceInt(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return math.Trunc(f), true
}

func coerceFloat(v any) (float64, bool) {
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
