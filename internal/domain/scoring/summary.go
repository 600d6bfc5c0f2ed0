package scoring

import (
	"strconv"

	"github.com/okian/matchreport/internal/domain/model"
)

// ActionRow is one action prepared for display.
type ActionRow struct {
	model.Action
	Tier          Tier   `json:"tier"`
	Color         string `json:"color"`
	MinuteDisplay string `json:"minute_display"`
	ScoreDisplay  string `json:"score_display"`
}

// Summary is the full derived view of a report.
type Summary struct {
	ReportID    string       `json:"report_id"`
	RawScore    string       `json:"raw_score"`
	R90Score    string       `json:"r90_score"`
	XGChain     string       `json:"xg_chain"`
	ActionCount int          `json:"action_count"`
	TierCounts  map[Tier]int `json:"tier_counts"`
	Actions     []ActionRow  `json:"actions"`
	normalized  Normalized
}

// Normalized exposes the numeric metrics behind the display strings.
func (s Summary) Normalized() Normalized { return s.normalized }

// Scorer turns a report into its summary.
type Scorer interface {
	Summarize(r model.Report) (Summary, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMinuteStyle sets the rollover behaviour of minute displays.
func WithMinuteStyle(style MinuteStyle) Option {
	return func(e *Engine) {
		if style != "" {
			e.minutes.Style = style
		}
	}
}

// Engine implements Scorer.
type Engine struct {
	minutes MinuteFormatter
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{minutes: MinuteFormatter{Style: MinuteStyleCarry}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinuteStyle returns the configured minute style.
func (e *Engine) MinuteStyle() MinuteStyle { return e.minutes.Style }

// Summarize validates r and derives every displayed metric.
func (e *Engine) Summarize(r model.Report) (Summary, error) {
	if err := Validate(r); err != nil {
		return Summary{}, err
	}

	n := Normalize(r)
	sorted := r.SortedActions()
	rows := make([]ActionRow, len(sorted))
	counts := make(map[Tier]int)
	for i := range sorted {
		a := sorted[i]
		tier := Classify(a.Score)
		counts[tier]++
		minute := a.Minute
		rows[i] = ActionRow{
			Action:        a,
			Tier:          tier,
			Color:         tier.Color(),
			MinuteDisplay: e.minutes.Format(&minute),
			ScoreDisplay:  strconv.FormatFloat(a.Score, formatFloatFixed, scoreDecimals, 64),
		}
	}

	return Summary{
		ReportID:    r.ID,
		RawScore:    n.RawDisplay(),
		R90Score:    n.R90Display(),
		XGChain:     n.XGChainDisplay(),
		ActionCount: len(rows),
		TierCounts:  counts,
		Actions:     rows,
		normalized:  n,
	}, nil
}

// Summarize uses a default engine.
func Summarize(r model.Report) (Summary, error) {
	return NewEngine().Summarize(r)
}
