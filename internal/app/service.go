// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/matchreport/internal/adapters/cache"
	recalcqueue "github.com/okian/matchreport/internal/adapters/mq/queue"
	workerpool "github.com/okian/matchreport/internal/adapters/mq/worker"
	"github.com/okian/matchreport/internal/adapters/repository"
	"github.com/okian/matchreport/internal/domain/access"
	"github.com/okian/matchreport/internal/domain/dedupe"
	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
	"github.com/okian/matchreport/internal/domain/types"
	"github.com/okian/matchreport/pkg/logger"
	"github.com/okian/matchreport/pkg/metrics"
)

// Recompute reasons carried on jobs and scored events.
const (
	ReasonCreate  = "create"
	ReasonHeader  = "header"
	ReasonActions = "actions"
	ReasonStats   = "stats"
	ReasonManual  = "manual"
)

// Publisher announces recomputed summaries.
type Publisher interface {
	Publish(ctx context.Context, e model.ScoredEvent) error
	Enabled() bool
	Close() error
}

// Service implements the API dependencies for the match report system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      *recalcqueue.InMemoryQueue
	pool       *workerpool.Pool
	summaries  *cache.SummaryCache
	scorer     scoring.Scorer
	resolver   *stats.Resolver
	authorizer access.Authorizer
	publisher  Publisher

	// Configuration
	storeDriver  string
	workerCount  int
	queueSize    int
	dedupeSize   int
	cacheSize    int
	maxListLimit int
	minuteStyle  scoring.MinuteStyle
	catalog      *stats.Catalog

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service. Components are ready for reads and scoring
// right away; recompute workers only run after Start.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:  "memory",
		workerCount:  runtime.NumCPU(),
		queueSize:    1_024,
		dedupeSize:   10_000,
		cacheSize:    5_000,
		maxListLimit: 100,
		minuteStyle:  scoring.MinuteStyleCarry,
		authorizer:   access.NewRoleAuthorizer("admin", "analyst"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.scorer = instrumentedScorer{inner: scoring.NewEngine(scoring.WithMinuteStyle(s.minuteStyle))}
	if s.catalog != nil {
		s.resolver = stats.NewResolver(stats.WithCatalog(*s.catalog))
	} else {
		s.resolver = stats.NewResolver()
	}
	s.summaries = cache.NewSummaryCache(s.cacheSize)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = recalcqueue.NewInMemoryQueue(recalcqueue.WithCapacity(s.queueSize))

	workerOpts := []workerpool.Option{
		workerpool.WithCache(s.summaries),
		workerpool.WithDeduper(s.deduper),
	}
	if s.publisher != nil {
		workerOpts = append(workerOpts, workerpool.WithPublisher(s.publisher))
	}
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.scorer, workerOpts...)
	return s
}

// Start launches the recompute workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "match report service started",
		logger.String("store", s.storeDriver),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("minuteStyle", string(s.minuteStyle)),
		logger.Bool("publish", s.publisher != nil && s.publisher.Enabled()),
	)
	return nil
}

// Stop drains pending recomputes and closes the publisher and store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping match report service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "match report service stopped")
	return errors.Join(errs...)
}

// CanMutate reports whether a staff role may change reports.
func (s *Service) CanMutate(ctx context.Context, role string) bool {
	return s.authorizer.CanMutate(ctx, role)
}

// Score summarizes a report that is not stored.
func (s *Service) Score(_ context.Context, r model.Report, hint stats.Hint) (types.ReportView, error) {
	sum, err := s.scorer.Summarize(r)
	if err != nil {
		return types.ReportView{}, err
	}
	return s.view(r, sum, hint, false), nil
}

// CreateReport validates and stores a new report, then queues its recompute.
func (s *Service) CreateReport(ctx context.Context, r model.Report) (types.ReportView, error) {
	if strings.TrimSpace(r.PlayerName) == "" {
		return types.ReportView{}, ErrMissingPlayer
	}
	if err := scoring.Validate(r); err != nil {
		metrics.RecordValidationFailure()
		return types.ReportView{}, err
	}
	created, err := s.store.CreateReport(ctx, r)
	if err != nil {
		return types.ReportView{}, err
	}
	s.requestRecalc(ctx, created.ID, ReasonCreate)
	return s.viewOf(created, stats.Hint{})
}

// GetReport returns a stored report with its summary and resolved stats.
func (s *Service) GetReport(ctx context.Context, id string, hint stats.Hint) (types.ReportView, error) {
	r, err := s.store.FetchReport(ctx, id)
	if err != nil {
		return types.ReportView{}, err
	}
	return s.viewOf(r, hint)
}

// ListReports returns report headers, most recently updated first.
// limit <= 0 or above the configured cap uses the cap.
func (s *Service) ListReports(ctx context.Context, limit int) ([]types.ReportHeader, error) {
	if limit <= 0 || limit > s.maxListLimit {
		limit = s.maxListLimit
	}
	reports, err := s.store.ListReports(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.ReportHeader, 0, len(reports))
	for i := range reports {
		r := reports[i]
		sum, _, err := s.summaryOf(r)
		if err != nil {
			// A stored report that no longer validates still lists, without scores.
			s.logger.Warn(ctx, "listing unscorable report", logger.ReportID(r.ID), logger.Error(err))
			sum = scoring.Summary{RawScore: scoring.NotAvailable, R90Score: scoring.NotAvailable, ActionCount: len(r.Actions)}
		}
		out = append(out, types.ReportHeader{
			ID:          r.ID,
			PlayerName:  r.PlayerName,
			Opponent:    r.Opponent,
			MatchDate:   r.MatchDate,
			RawScore:    sum.RawScore,
			R90Score:    sum.R90Score,
			ActionCount: sum.ActionCount,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return out, nil
}

// UpdateReport replaces the header fields of a stored report.
func (s *Service) UpdateReport(ctx context.Context, r model.Report) (types.ReportView, error) {
	if strings.TrimSpace(r.ID) == "" {
		return types.ReportView{}, ErrMissingID
	}
	if strings.TrimSpace(r.PlayerName) == "" {
		return types.ReportView{}, ErrMissingPlayer
	}
	header := model.Report{R90Score: r.R90Score, MinutesPlayed: r.MinutesPlayed}
	if err := scoring.Validate(header); err != nil {
		metrics.RecordValidationFailure()
		return types.ReportView{}, err
	}
	updated, err := s.store.UpdateReport(ctx, r)
	if err != nil {
		return types.ReportView{}, err
	}
	s.requestRecalc(ctx, updated.ID, ReasonHeader)
	return s.viewOf(updated, stats.Hint{})
}

// ReplaceActions swaps every action of a report.
func (s *Service) ReplaceActions(ctx context.Context, id string, actions []model.Action) (types.ReportView, error) {
	if err := scoring.Validate(model.Report{Actions: actions}); err != nil {
		metrics.RecordValidationFailure()
		return types.ReportView{}, err
	}
	if err := s.store.SaveActions(ctx, id, actions); err != nil {
		return types.ReportView{}, err
	}
	s.requestRecalc(ctx, id, ReasonActions)
	return s.GetReport(ctx, id, stats.Hint{})
}

// ReplaceStats swaps the advanced stat bag of a report.
func (s *Service) ReplaceStats(ctx context.Context, id string, bag model.StatBag) (types.ReportView, error) {
	if err := s.store.SaveStats(ctx, id, bag); err != nil {
		return types.ReportView{}, err
	}
	s.requestRecalc(ctx, id, ReasonStats)
	return s.GetReport(ctx, id, stats.Hint{})
}

// DeleteReport removes a report and forgets its summary.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	if err := s.store.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.summaries.Remove(id)
	return nil
}

// Recalculate queues a recompute for a stored report. Unlike the implicit
// recompute after a mutation, a full queue is reported to the caller.
func (s *Service) Recalculate(ctx context.Context, id string) error {
	if _, err := s.store.FetchReport(ctx, id); err != nil {
		return err
	}
	return s.enqueue(ctx, id, ReasonManual)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.ServiceStats{
		Started:          s.started,
		StoreDriver:      s.storeDriver,
		WorkerCount:      s.pool.Size(),
		QueueCapacity:    s.queueSize,
		QueueLength:      s.queue.Len(ctx),
		PendingRecalcs:   s.deduper.Size(),
		ProcessedRecalcs: s.pool.Processed(),
		CachedSummaries:  s.summaries.Len(),
		PublishEnabled:   s.publisher != nil && s.publisher.Enabled(),
		MinuteStyle:      string(s.minuteStyle),
	}
	if n, err := s.store.Count(ctx); err == nil {
		st.Reports = n
		metrics.UpdateReportsTotal(n)
	} else {
		s.logger.Warn(ctx, "count reports failed", logger.Error(err))
	}
	metrics.UpdateQueueSize(st.QueueLength)
	return st
}

// requestRecalc queues a recompute after a mutation. The mutation already
// succeeded, so a full queue is only logged: reads compute on demand.
func (s *Service) requestRecalc(ctx context.Context, id, reason string) {
	if err := s.enqueue(ctx, id, reason); err != nil {
		s.logger.Warn(ctx, "recompute not queued",
			logger.ReportID(id),
			logger.String("reason", reason),
			logger.Error(err),
		)
	}
}

func (s *Service) enqueue(ctx context.Context, id, reason string) error {
	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordQueueCoalesced()
		s.logger.Debug(ctx, "recompute already pending", logger.ReportID(id))
		return nil
	}
	job := model.RecalcJob{ReportID: id, Reason: reason, EnqueuedAt: time.Now().UTC()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, id)
		return err
	}
	return nil
}

// summaryOf serves the cached summary when it matches the report version
// and computes (and caches) it otherwise.
func (s *Service) summaryOf(r model.Report) (scoring.Summary, bool, error) {
	if sum, ok := s.summaries.Get(r.ID, r.UpdatedAt); ok {
		metrics.RecordSummaryCacheHit()
		return sum, true, nil
	}
	metrics.RecordSummaryCacheMiss()
	sum, err := s.scorer.Summarize(r)
	if err != nil {
		return scoring.Summary{}, false, err
	}
	s.summaries.Put(r.ID, r.UpdatedAt, sum)
	return sum, false, nil
}

func (s *Service) viewOf(r model.Report, hint stats.Hint) (types.ReportView, error) {
	sum, cached, err := s.summaryOf(r)
	if err != nil {
		return types.ReportView{}, err
	}
	return s.view(r, sum, hint, cached), nil
}

func (s *Service) view(r model.Report, sum scoring.Summary, hint stats.Hint, cached bool) types.ReportView {
	return types.ReportView{
		ID:            r.ID,
		PlayerName:    r.PlayerName,
		Opponent:      r.Opponent,
		MatchDate:     r.MatchDate,
		MinutesPlayed: r.MinutesPlayed,
		StoredR90:     r.R90Score,
		Summary:       sum,
		Stats:         s.resolver.Resolve(r.Stats, hint),
		Cached:        cached,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
