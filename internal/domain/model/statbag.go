package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Reserved stat bag keys and sibling suffixes.
const (
	KeySelectedStats = "selected_stats"
	KeyStatsOrder    = "stats_order"
	SuffixAttempted  = "_attempted"
	SuffixPer90      = "_per90"
)

// StatBag is an open mapping from stat name to a number or string value.
// Two reserved keys (selected_stats, stats_order) carry display metadata.
type StatBag map[string]any

// IsControlKey reports whether key is reserved metadata rather than a stat.
func IsControlKey(key string) bool {
	return key == KeySelectedStats || key == KeyStatsOrder
}

// Clone returns a shallow copy of the bag; list values are copied.
func (b StatBag) Clone() StatBag {
	if b == nil {
		return nil
	}
	out := make(StatBag, len(b))
	for k, v := range b {
		switch t := v.(type) {
		case []any:
			out[k] = append([]any(nil), t...)
		case []string:
			out[k] = append([]string(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// Number returns the value at key when it holds a numeric type.
// Numeric strings are not numbers here.
func (b StatBag) Number(key string) (float64, bool) {
	v, ok := b[key]
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// Numeric is like Number but also accepts numeric strings.
func (b StatBag) Numeric(key string) (float64, bool) {
	v, ok := b[key]
	if !ok {
		return 0, false
	}
	if s, isStr := v.(string); isStr {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return AsNumber(v)
}

// Strings returns the value at key as a list of strings.
// Accepts []string, []any of strings, or a comma separated string.
func (b StatBag) Strings(key string) []string {
	switch t := b[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// Keys returns the stat keys in natural (lexical) order, control keys excluded.
func (b StatBag) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		if IsControlKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsNumber converts the numeric types produced by JSON and YAML decoders.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsBlank reports whether a stat value should be skipped from display:
// nil, empty string, NaN or an infinity.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if f, ok := AsNumber(v); ok {
		return math.IsNaN(f) || math.IsInf(f, 0)
	}
	return false
}
