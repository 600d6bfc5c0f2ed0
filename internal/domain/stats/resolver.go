package stats

import (
	"math"
	"strconv"
	"strings"

	"github.com/okian/matchreport/internal/domain/model"
)

// EntryKind distinguishes paired success/attempt entries from plain values.
type EntryKind string

const (
	EntryPaired EntryKind = "paired"
	EntryScalar EntryKind = "scalar"
)

// Entry is one displayable advanced stat.
type Entry struct {
	Key               string    `json:"key"`
	Kind              EntryKind `json:"kind"`
	Value             any       `json:"value,omitempty"`
	Successful        float64   `json:"successful"`
	Attempted         float64   `json:"attempted"`
	Percentage        float64   `json:"percentage"`
	PercentageDisplay string    `json:"percentage_display,omitempty"`
	Per90             *float64  `json:"per90,omitempty"`
}

// Hint overrides the ordering metadata stored in the bag.
type Hint struct {
	StatsOrder    []string
	SelectedStats []string
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithCatalog sets the stat kind table.
func WithCatalog(c Catalog) Option {
	return func(r *Resolver) {
		r.catalog = c
	}
}

// Resolver turns a stat bag into ordered display entries.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver. Without a catalog every stat kind comes
// from the name heuristic.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{catalog: Catalog{heuristic: true}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the configured kind table.
func (r *Resolver) Catalog() Catalog { return r.catalog }

// Resolve emits one entry per base stat, in display order.
func (r *Resolver) Resolve(bag model.StatBag, hint Hint) []Entry {
	if len(bag) == 0 {
		return []Entry{}
	}

	// an _attempted key whose base is present is only shown through its base
	consumed := make(map[string]bool)
	for key := range bag {
		if base, ok := strings.CutSuffix(key, model.SuffixAttempted); ok {
			if _, has := bag[base]; has {
				consumed[key] = true
			}
		}
	}

	order := displayOrder(bag, hint)
	out := make([]Entry, 0, len(order))
	for _, key := range order {
		if model.IsControlKey(key) || consumed[key] || strings.HasSuffix(key, model.SuffixPer90) {
			continue
		}
		consumed[key] = true

		value, ok := bag[key]
		if !ok || model.IsBlank(value) {
			continue
		}

		entry := Entry{Key: key, Kind: EntryScalar, Value: value}
		successful, numeric := model.AsNumber(value)
		attempted, hasAttempted := bag.Numeric(key + model.SuffixAttempted)
		pct := math.Round(successful/attempted*100*10) / 10
		if numeric && hasAttempted && attempted > 0 && finite(attempted) && finite(pct) {
			entry = Entry{
				Key:               key,
				Kind:              EntryPaired,
				Successful:        successful,
				Attempted:         attempted,
				Percentage:        pct,
				PercentageDisplay: strconv.FormatFloat(pct, 'f', 1, 64),
			}
		}

		if r.catalog.KindOf(key) == KindRate {
			if per90, ok := bag.Numeric(key + model.SuffixPer90); ok && finite(per90) {
				entry.Per90 = &per90
			}
		}
		out = append(out, entry)
	}
	return out
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// displayOrder picks the hint lists, then the bag's stats_order and
// selected_stats, then sorted keys.
func displayOrder(bag model.StatBag, hint Hint) []string {
	for _, candidate := range [][]string{
		hint.StatsOrder,
		hint.SelectedStats,
		bag.Strings(model.KeyStatsOrder),
		bag.Strings(model.KeySelectedStats),
	} {
		if len(candidate) > 0 {
			return candidate
		}
	}
	return bag.Keys()
}
