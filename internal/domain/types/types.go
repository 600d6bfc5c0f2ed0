// Package types contains the read shapes shared by the service and the API.
package types

import (
	"time"

	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
)

// ReportView is the full read model of one report.
type ReportView struct {
	ID            string   `json:"id,omitempty"`
	PlayerName    string   `json:"player_name"`
	Opponent      string   `json:"opponent,omitempty"`
	MatchDate     string   `json:"match_date,omitempty"`
	MinutesPlayed *float64 `json:"minutes_played"`

	// StoredR90 echoes the staff-reviewed R90 when one was saved.
	StoredR90 *float64 `json:"stored_r90,omitempty"`

	Summary scoring.Summary `json:"summary"`
	Stats   []stats.Entry   `json:"stats"`

	// Cached is true when the summary came from the recompute cache.
	Cached bool `json:"cached"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ReportHeader is one row of a report listing.
type ReportHeader struct {
	ID          string    `json:"id"`
	PlayerName  string    `json:"player_name"`
	Opponent    string    `json:"opponent,omitempty"`
	MatchDate   string    `json:"match_date,omitempty"`
	RawScore    string    `json:"raw_score"`
	R90Score    string    `json:"r90_score"`
	ActionCount int       `json:"action_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ServiceStats is the operational snapshot served on /stats.
type ServiceStats struct {
	Started          bool   `json:"started"`
	StoreDriver      string `json:"store_driver"`
	Reports          int    `json:"reports"`
	WorkerCount      int    `json:"worker_count"`
	QueueCapacity    int    `json:"queue_capacity"`
	QueueLength      int    `json:"queue_length"`
	PendingRecalcs   int64  `json:"pending_recalcs"`
	ProcessedRecalcs int64  `json:"processed_recalcs"`
	CachedSummaries  int    `json:"cached_summaries"`
	PublishEnabled   bool   `json:"publish_enabled"`
	MinuteStyle      string `json:"minute_style"`
}
