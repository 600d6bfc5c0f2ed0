// Package worker recomputes report summaries off the request path.
package worker

import (
	"time"

	"github.com/okian/matchreport/internal/domain/dedupe"
	"github.com/okian/matchreport/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDeduper clears a report's pending mark as soon as its job is picked up.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *InMemoryWorker) {
		w.deduper = d
	}
}

// WithCache stores every computed summary.
func WithCache(c Cache) Option {
	return func(w *InMemoryWorker) {
		w.cache = c
	}
}

// WithPublisher emits a ScoredEvent after every computed summary.
func WithPublisher(p Publisher) Option {
	return func(w *InMemoryWorker) {
		w.publisher = p
	}
}

// WithClock overrides the time source used for event stamps.
func WithClock(now func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if now != nil {
			w.now = now
		}
	}
}
