package scoring

import (
	"sort"

	"github.com/okian/matchreport/internal/domain/model"
)

// Aggregates holds the derived sums over an action list.
type Aggregates struct {
	RawScore float64
	XGChain  float64
	Count    int
}

// RawScore sums every action score. An empty list yields 0.
func RawScore(actions []model.Action) float64 {
	return Aggregate(actions).RawScore
}

// XGChain sums the strictly positive action scores. An empty list yields 0.
func XGChain(actions []model.Action) float64 {
	return Aggregate(actions).XGChain
}

// Aggregate reduces the action list in a single pass. Scores are summed in
// ActionNumber order, ties broken by score, so the caller's ordering never
// changes the rounded result. The input slice is not modified.
func Aggregate(actions []model.Action) Aggregates {
	agg := Aggregates{Count: len(actions)}
	for _, s := range canonicalScores(actions) {
		agg.RawScore += s
		if s > 0 {
			agg.XGChain += s
		}
	}
	return agg
}

func canonicalScores(actions []model.Action) []float64 {
	ordered := make([]model.Action, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ActionNumber != ordered[j].ActionNumber {
			return ordered[i].ActionNumber < ordered[j].ActionNumber
		}
		return ordered[i].Score < ordered[j].Score
	})
	scores := make([]float64, len(ordered))
	for i := range ordered {
		scores[i] = ordered[i].Score
	}
	return scores
}
