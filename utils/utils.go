package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// Letters converts a zero-based position into a spreadsheet-style letter
// sequence: 0 -> "A", 25 -> "Z", 26 -> "AA", 27 -> "AB".
// Negative positions are treated as 0.
func Letters(n int) string {
	if n < 0 {
		n = 0
	}
	var buf []byte
	for {
		buf = append(buf, byte('A'+n%26))
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	// Digits were produced least significant first.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// OptionLabel returns the lower-case label of the option at position i
// (0 -> "a", 1 -> "b", ...). Labels are always derived from position.
func OptionLabel(i int) string {
	return strings.ToLower(Letters(i))
}

// SectionTitle returns the auto-derived title of a section created when
// count sections already exist.
func SectionTitle(count int) string {
	return "Section " + Letters(count)
}

// CoerceInt converts loosely typed numeric input into an int.
// Numbers are truncated towards zero, numeric strings are parsed, and
// everything else becomes 0. Values outside the int32 range (including NaN
// and infinities) also become 0, whichever form they arrive in.
func CoerceInt(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return bounded(int64(x))
	case int32:
		return int(x)
	case int64:
		return bounded(x)
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return CoerceInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return bounded(i)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return floatToInt(f)
	default:
		return 0
	}
}

func bounded(i int64) int {
	if i > math.MaxInt32 || i < math.MinInt32 {
		return 0
	}
	return int(i)
}

func floatToInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
