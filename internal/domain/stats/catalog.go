// Package stats resolves a report's advanced stat bag into display entries.
package stats

import (
	"fmt"
	"strings"
)

// Kind tells whether a stat is a rate (per-90 is meaningful) or a count.
type Kind string

const (
	KindRate  Kind = "rate"
	KindCount Kind = "count"
)

// rateMarkers are the legacy name fragments that mark a rate stat when the
// catalog has no entry for it.
var rateMarkers = []string{"xg", "xa", "xc", "xgchain"}

// ParseKind validates a configured kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRate:
		return KindRate, nil
	case KindCount:
		return KindCount, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Catalog is the explicit per-stat kind table. Lookups ignore case.
type Catalog struct {
	kinds     map[string]Kind
	heuristic bool
}

// NewCatalog builds a catalog from stat name -> kind name pairs.
// Names missing from the table fall back to the name heuristic.
func NewCatalog(kinds map[string]string) (Catalog, error) {
	c := Catalog{kinds: make(map[string]Kind, len(kinds)), heuristic: true}
	for name, raw := range kinds {
		k, err := ParseKind(raw)
		if err != nil {
			return Catalog{}, fmt.Errorf("stat %q: %w", name, err)
		}
		c.kinds[strings.ToLower(name)] = k
	}
	return c, nil
}

// Strict returns a copy that treats names missing from the table as counts.
func (c Catalog) Strict() Catalog {
	c.heuristic = false
	return c
}

// KindOf returns the kind of a stat name.
func (c Catalog) KindOf(name string) Kind {
	lower := strings.ToLower(name)
	if k, ok := c.kinds[lower]; ok {
		return k
	}
	if c.heuristic || c.kinds == nil {
		for _, marker := range rateMarkers {
			if strings.Contains(lower, marker) {
				return KindRate
			}
		}
	}
	return KindCount
}

// Len returns the number of explicit entries.
func (c Catalog) Len() int { return len(c.kinds) }
