package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Float coerces a raw store value to float64. Missing, null and non-numeric
// values become zero; they never propagate as errors.
func Float(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case int:
		return float64(val)
	case uint64:
		return float64(val)
	case uint32:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	case fmt.Stringer:
		f, err := strconv.ParseFloat(strings.TrimSpace(val.String()), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Key normalises a raw store value into a lookup key. Integer-valued floats
// render without a fraction so that numeric ids compare equal across drivers.
// Nil maps to the empty string; callers treat "" as "no key".
func Key(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return Key(float64(val))
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case uint64:
		return strconv.FormatUint(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// Text renders a raw store value for display. Nil maps to the empty string.
func Text(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return Key(v)
}
