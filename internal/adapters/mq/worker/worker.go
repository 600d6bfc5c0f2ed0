// Package worker recomputes report summaries off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/matchreport/internal/adapters/mq/queue"
	"github.com/okian/matchreport/internal/adapters/repository"
	"github.com/okian/matchreport/internal/domain/dedupe"
	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/pkg/logger"
	"github.com/okian/matchreport/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Fetcher loads the current state of a report.
type Fetcher interface {
	FetchReport(ctx context.Context, id string) (model.Report, error)
}

// Cache receives computed summaries.
type Cache interface {
	Put(id string, version time.Time, s scoring.Summary)
	Remove(id string)
}

// Publisher announces computed summaries.
type Publisher interface {
	Publish(ctx context.Context, e model.ScoredEvent) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes recompute jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	fetcher Fetcher
	scorer  scoring.Scorer
	name    string

	deduper   dedupe.Deduper
	cache     Cache
	publisher Publisher
	now       func() time.Time

	processed atomic.Int64

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, fetcher Fetcher, scorer scoring.Scorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		fetcher:  fetcher,
		scorer:   scorer,
		name:     "worker",
		now:      func() time.Time { return time.Now().UTC() },
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Processed returns how many jobs this worker finished successfully.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "recompute failed", logger.ReportID(job.ReportID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process recomputes one report.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	// Clear the pending mark first so edits made while we work queue a fresh job.
	if w.deduper != nil {
		w.deduper.Unrecord(ctx, job.ReportID)
	}

	report, err := w.fetcher.FetchReport(ctx, job.ReportID)
	if errors.Is(err, repository.ErrNotFound) {
		// Deleted after the job was queued.
		if w.cache != nil {
			w.cache.Remove(job.ReportID)
		}
		w.logger.Debug(ctx, "report gone before recompute", logger.ReportID(job.ReportID))
		return nil
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "fetch")
		return fmt.Errorf("fetch report %s: %w", job.ReportID, err)
	}

	summary, err := w.scorer.Summarize(report)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "summarize")
		if w.cache != nil {
			w.cache.Remove(job.ReportID)
		}
		return fmt.Errorf("summarize report %s: %w", job.ReportID, err)
	}
	if w.cache != nil {
		w.cache.Put(report.ID, report.UpdatedAt, summary)
	}
	w.processed.Add(1)

	if w.publisher == nil {
		return nil
	}
	event := model.ScoredEvent{
		ReportID:    report.ID,
		PlayerName:  report.PlayerName,
		RawScore:    summary.RawScore,
		R90Score:    summary.R90Score,
		XGChain:     summary.XGChain,
		ActionCount: summary.ActionCount,
		Reason:      job.Reason,
		ScoredAt:    w.now(),
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		// The summary is already cached; a lost event is logged, not retried.
		w.logger.Warn(ctx, "publish failed", logger.ReportID(report.ID), logger.Error(err))
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing q. opts apply to every worker.
func NewPool(workerCount int, q Queue, fetcher Fetcher, scorer scoring.Scorer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, fetcher, scorer, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums the successful jobs of every worker.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain it, and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
