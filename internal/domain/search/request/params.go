package request

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseTopN coerces a loosely typed topN value (JSON number, numeric string or boolean).
// Absent or unparseable values fall back to DefaultTopN, fractions are truncated,
// non-positive values reset to DefaultTopN and large values clamp to MaxTopN.
// true counts as 1 and false as 0.
func ParseTopN(raw any) int {
	n, ok := toInt(raw)
	if !ok {
		return DefaultTopN
	}
	return clampTopN(n)
}

// ParseThreshold coerces a loosely typed threshold value (JSON number, numeric string or boolean).
// Absent or unparseable values fall back to def. The result is clamped to [0, 1], NaN lands on 1.
func ParseThreshold(raw any, def float64) float64 {
	f, ok := toFloat(raw)
	if !ok {
		f = def
	}
	if math.IsNaN(f) {
		return MaxThreshold
	}
	return clampThreshold(f)
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int:
		return v, true
	case int64:
		return saturate(float64(v)), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return saturate(math.Trunc(v)), true
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return saturate(float64(n)), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return toInt(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return saturate(float64(n)), true
	default:
		return 0, false
	}
}

// saturate keeps huge values on the right side of the clamp without overflowing int.
func saturate(f float64) int {
	if f > MaxTopN {
		return MaxTopN + 1
	}
	if f < 0 {
		return -1
	}
	return int(f)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
