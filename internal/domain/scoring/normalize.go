package scoring

import (
	"strconv"

	"github.com/okian/matchreport/internal/domain/model"
)

// Display precision and sentinel.
const (
	NotAvailable     = "N/A"
	rawDecimals      = 5
	r90Decimals      = 2
	xgChainDecimals  = 3
	minutesPerMatch  = 90
	scoreDecimals    = 3
	formatFloatFixed = 'f'
)

// Metric is an optional derived number. Zero value means "N/A".
type Metric struct {
	Value float64
	Valid bool
}

func validMetric(v float64) Metric { return Metric{Value: v, Valid: true} }

// Format renders the metric with the given number of decimals, or N/A.
func (m Metric) Format(decimals int) string {
	if !m.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(m.Value, formatFloatFixed, decimals, 64)
}

// Normalized is the outcome of the R90 decision policy.
type Normalized struct {
	Aggregates Aggregates
	Raw        Metric
	R90        Metric
}

// RawDisplay renders the raw score to 5 decimals.
func (n Normalized) RawDisplay() string { return n.Raw.Format(rawDecimals) }

// R90Display renders the R90 score to 2 decimals.
func (n Normalized) R90Display() string { return n.R90.Format(r90Decimals) }

// XGChainDisplay renders the xG chain to 3 decimals.
func (n Normalized) XGChainDisplay() string {
	return validMetric(n.Aggregates.XGChain).Format(xgChainDecimals)
}

// Normalize applies the raw and R90 decision rules.
//
// Raw prefers live action data, then the inverse of a stored R90 over minutes
// played. R90 prefers the stored value, which preserves staff corrections,
// then the value derived from actions. Zero minutes never divides.
func Normalize(r model.Report) Normalized {
	agg := Aggregate(r.Actions)
	hasActions := len(r.Actions) > 0

	n := Normalized{Aggregates: agg}

	switch {
	case hasActions:
		n.Raw = validMetric(agg.RawScore)
	case r.R90Score != nil && r.MinutesPlayed != nil:
		n.Raw = validMetric((*r.R90Score / minutesPerMatch) * *r.MinutesPlayed)
	}

	switch {
	case r.R90Score != nil:
		n.R90 = validMetric(*r.R90Score)
	case r.MinutesPlayed != nil && *r.MinutesPlayed != 0 && hasActions:
		n.R90 = validMetric((agg.RawScore / *r.MinutesPlayed) * minutesPerMatch)
	}

	return n
}
