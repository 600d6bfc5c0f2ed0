// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Action is one scored in-match event.
// ActionNumber is the display sort key; it is not necessarily chronological.
type Action struct {
	ActionNumber int     `json:"action_number" yaml:"action_number"`
	Minute       float64 `json:"minute" yaml:"minute"`           // whole minute + hundredths
	Score        float64 `json:"score" yaml:"score"`             // signed, typically [-0.1, 0.2]
	Type         string  `json:"action_type" yaml:"action_type"` // opaque
	Description  string  `json:"description" yaml:"description"`
	Notes        string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	VideoURL     string  `json:"video_url,omitempty" yaml:"video_url,omitempty"`
}

// Report is one player-match performance record.
type Report struct {
	ID         string `json:"id" yaml:"id"`
	PlayerName string `json:"player_name" yaml:"player_name"`
	Opponent   string `json:"opponent,omitempty" yaml:"opponent,omitempty"`
	MatchDate  string `json:"match_date,omitempty" yaml:"match_date,omitempty"`

	// R90Score is the stored, staff-reviewed R90. When set it wins over any derived value.
	R90Score      *float64 `json:"r90_score" yaml:"r90_score"`
	MinutesPlayed *float64 `json:"minutes_played" yaml:"minutes_played"`

	Actions []Action `json:"actions" yaml:"actions"`
	Stats   StatBag  `json:"stats,omitempty" yaml:"stats,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Clone returns a deep copy of the report.
func (r Report) Clone() Report {
	out := r
	if r.R90Score != nil {
		v := *r.R90Score
		out.R90Score = &v
	}
	if r.MinutesPlayed != nil {
		v := *r.MinutesPlayed
		out.MinutesPlayed = &v
	}
	if r.Actions != nil {
		out.Actions = make([]Action, len(r.Actions))
		copy(out.Actions, r.Actions)
	}
	out.Stats = r.Stats.Clone()
	return out
}

// SortedActions returns a copy of the actions ordered by ActionNumber ascending.
func (r Report) SortedActions() []Action {
	out := make([]Action, len(r.Actions))
	copy(out, r.Actions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ActionNumber < out[j].ActionNumber
	})
	return out
}

// Float64 returns a pointer to v. Handy for optional report fields.
func Float64(v float64) *float64 { return &v }

// RecalcJob asks the pipeline to recompute a report summary.
type RecalcJob struct {
	ReportID   string
	Reason     string // create, actions, stats, header
	EnqueuedAt time.Time
}

// ScoredEvent is emitted after a report summary is recomputed.
type ScoredEvent struct {
	ReportID    string    `json:"report_id"`
	PlayerName  string    `json:"player_name"`
	RawScore    string    `json:"raw_score"`
	R90Score    string    `json:"r90_score"`
	XGChain     string    `json:"xg_chain"`
	ActionCount int       `json:"action_count"`
	Reason      string    `json:"reason"`
	ScoredAt    time.Time `json:"scored_at"`
}

// MarshalKey returns the partitioning key for the event.
func (e ScoredEvent) MarshalKey() []byte { return []byte(e.ReportID) }

// MarshalValue returns the JSON payload for the event.
func (e ScoredEvent) MarshalValue() ([]byte, error) { return json.Marshal(e) }
