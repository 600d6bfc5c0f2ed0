package service

import (
	"errors"
	"time"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/pkg/metrics"
)

// instrumentedScorer records scoring metrics around another Scorer.
type instrumentedScorer struct {
	inner scoring.Scorer
}

func (s instrumentedScorer) Summarize(r model.Report) (scoring.Summary, error) {
	start := time.Now()
	sum, err := s.inner.Summarize(r)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidInput) {
			metrics.RecordValidationFailure()
		}
		return sum, err
	}

	metrics.RecordReportScored()
	for tier, n := range sum.TierCounts {
		metrics.RecordActionTier(tier.String(), n)
	}
	return sum, nil
}
