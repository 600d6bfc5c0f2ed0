package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/pkg/logger"
)

// Runner executes load runs against one service.
type Runner struct {
	cfg    Config
	client *Client
	scorer scoring.Scorer
	log    logger.Logger
}

// NewRunner creates a runner. The scorer must use the same minute style as
// the service for minute displays to agree; only scores are compared.
func NewRunner(cfg Config, log logger.Logger) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL, cfg.Role, cfg.Timeout),
		scorer: scoring.NewEngine(),
		log:    log,
	}
}

// Config returns the effective configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run checks health, creates the generated reports concurrently and
// verifies every created summary against local scoring.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats

	r.log.Info(ctx, "starting load run",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("reports", r.cfg.Reports),
		logger.Int("workers", r.cfg.Workers),
		logger.Int("actionsPerReport", r.cfg.ActionsPerReport),
	)

	if err := r.client.Health(ctx); err != nil {
		return st, fmt.Errorf("service health check failed: %w", err)
	}

	reports := NewGenerator(r.cfg.Seed).Reports(r.cfg.Reports, r.cfg.ActionsPerReport)
	st.Generated = len(reports)

	var submitted, created, failed, verified, mismatched atomic.Int64
	jobs := make(chan model.Report, r.cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for report := range jobs {
				submitted.Add(1)
				view, err := r.client.Create(ctx, report)
				if err != nil {
					failed.Add(1)
					r.log.Debug(ctx, "create failed", logger.Error(err))
					continue
				}
				created.Add(1)

				if ok := r.verify(ctx, report, view.ID, view.Summary); ok {
					verified.Add(1)
				} else {
					mismatched.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, report := range reports {
			select {
			case <-ctx.Done():
				return
			case jobs <- report:
			}
		}
	}()
	wg.Wait()

	st.Submitted = int(submitted.Load())
	st.Created = int(created.Load())
	st.Failed = int(failed.Load())
	st.Verified = int(verified.Load())
	st.Mismatched = int(mismatched.Load())
	st.Duration = time.Since(start)

	r.log.Info(ctx, "load run finished",
		logger.Int("generated", st.Generated),
		logger.Int("created", st.Created),
		logger.Int("failed", st.Failed),
		logger.Int("verified", st.Verified),
		logger.Int("mismatched", st.Mismatched),
		logger.Duration("duration", st.Duration),
		logger.Float64("reportsPerSecond", st.ReportsPerSecond()),
	)

	if err := ctx.Err(); err != nil {
		return st, fmt.Errorf("load run interrupted: %w", err)
	}
	return st, nil
}

// verify compares the served summary with the locally computed one.
func (r *Runner) verify(ctx context.Context, report model.Report, id string, got scoring.Summary) bool {
	want, err := r.scorer.Summarize(report)
	if err != nil {
		r.log.Warn(ctx, "generated report does not score", logger.ReportID(id), logger.Error(err))
		return false
	}
	if got.RawScore != want.RawScore || got.R90Score != want.R90Score ||
		got.XGChain != want.XGChain || got.ActionCount != want.ActionCount {
		r.log.Warn(ctx, "summary mismatch",
			logger.ReportID(id),
			logger.String("rawWant", want.RawScore),
			logger.String("rawGot", got.RawScore),
			logger.String("r90Want", want.R90Score),
			logger.String("r90Got", got.R90Score),
		)
		return false
	}
	return true
}
