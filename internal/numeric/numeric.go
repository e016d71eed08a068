package numeric

import (
	"math"
	"strconv"
	"strings"
)

// Float coerces arbitrary spreadsheet/JSON input to a float64. Blank cells,
// nil, unparseable text, NaN and infinities all coerce to 0. It never panics
// and never returns an error; every monetary figure in the recovery engine
// routes through it so a missing cell behaves like an explicit zero.
func Float(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return sanitize(t)
	case float32:
		return sanitize(float64(t))
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint64:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		return parse(t)
	default:
		return 0
	}
}

func parse(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return sanitize(f)
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
