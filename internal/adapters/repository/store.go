// Package repository persists match reports.
package repository

import (
	"context"
	"time"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/pkg/metrics"
)

// Store provides read/write access to match reports.
type Store interface {
	// CreateReport stores a new report. An empty ID is replaced by a fresh UUID.
	// Returns ErrConflict if the ID is already taken.
	CreateReport(ctx context.Context, r model.Report) (model.Report, error)

	// FetchReport returns one report with its actions ordered by action number.
	// Returns ErrNotFound if the id is unknown.
	FetchReport(ctx context.Context, id string) (model.Report, error)

	// ListReports returns up to limit reports, most recently updated first.
	ListReports(ctx context.Context, limit int) ([]model.Report, error)

	// UpdateReport replaces the header fields (player, opponent, date, r90, minutes).
	// Actions and stats are left as they are.
	UpdateReport(ctx context.Context, r model.Report) (model.Report, error)

	// SaveActions replaces every action of a report.
	SaveActions(ctx context.Context, id string, actions []model.Action) error

	// SaveStats replaces the advanced stat bag of a report.
	SaveStats(ctx context.Context, id string, bag model.StatBag) error

	// DeleteReport removes a report and its actions.
	DeleteReport(ctx context.Context, id string) error

	// Count returns the number of stored reports.
	Count(ctx context.Context) (int, error)
}

// observe records the latency of one repository operation.
func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}
