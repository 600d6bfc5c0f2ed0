package loadgen

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/matchreport/internal/domain/model"
)

// Generation ranges.
const (
	minScore        = -0.1
	scoreRange      = 0.3
	fullMatch       = 90.0
	subMinutesMin   = 15.0
	fullMatchChance = 0.7
	storedR90Chance = 0.1
	hundredths      = 100
)

var (
	actionTypes = []string{"pass", "dribble", "shot", "tackle", "interception", "cross", "header"}
	opponents   = []string{"Rovers", "United", "Athletic", "City", "Wanderers", "Albion"}
)

// Generator builds random but plausible reports.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator; equal seeds yield equal sequences,
// except for the player names, which are random UUIDs.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Reports generates n reports with the given number of actions each.
func (g *Generator) Reports(n, actions int) []model.Report {
	out := make([]model.Report, n)
	for i := range out {
		out[i] = g.Report(actions)
	}
	return out
}

// Report generates one report.
func (g *Generator) Report(actions int) model.Report {
	minutes := fullMatch
	if g.rng.Float64() > fullMatchChance {
		minutes = math.Round(subMinutesMin + g.rng.Float64()*(fullMatch-subMinutesMin))
	}

	r := model.Report{
		PlayerName:    "player-" + uuid.NewString()[:8],
		Opponent:      opponents[g.rng.IntN(len(opponents))],
		MatchDate:     fmt.Sprintf("2026-%02d-%02d", 1+g.rng.IntN(12), 1+g.rng.IntN(28)),
		MinutesPlayed: model.Float64(minutes),
		Actions:       make([]model.Action, actions),
		Stats:         g.stats(),
	}
	if g.rng.Float64() < storedR90Chance {
		r.R90Score = model.Float64(round(g.rng.Float64()*2, 2))
	}

	// Action numbers are shuffled so the display order differs from input order.
	numbers := g.rng.Perm(actions)
	for i := range r.Actions {
		whole := g.rng.IntN(int(minutes) + 1)
		r.Actions[i] = model.Action{
			ActionNumber: numbers[i] + 1,
			Minute:       float64(whole) + float64(g.rng.IntN(hundredths))/hundredths,
			Score:        round(minScore+g.rng.Float64()*scoreRange, 3),
			Type:         actionTypes[g.rng.IntN(len(actionTypes))],
			Description:  fmt.Sprintf("generated action %d", i+1),
		}
	}
	return r
}

func (g *Generator) stats() model.StatBag {
	attempted := 10 + g.rng.IntN(50)
	return model.StatBag{
		"passes":                 g.rng.IntN(attempted + 1),
		"passes_attempted":       attempted,
		"duels_won":              g.rng.IntN(10),
		"duels_won_attempted":    10,
		"distance_covered":       round(5+g.rng.Float64()*7, 1),
		"distance_covered_per90": round(8+g.rng.Float64()*4, 1),
		"touches":                g.rng.IntN(120),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
