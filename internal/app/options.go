package service

import (
	"github.com/okian/matchreport/internal/adapters/repository"
	"github.com/okian/matchreport/internal/domain/access"
	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
	"github.com/okian/matchreport/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the report repository and the driver name shown in stats.
func WithStore(store repository.Store, driver string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.storeDriver = driver
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending recompute jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps how many pending report ids are coalesced.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSummaryCacheSize caps how many computed summaries are kept.
func WithSummaryCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cacheSize = size
		}
	}
}

// WithMaxListLimit caps the number of rows a listing returns.
func WithMaxListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithMinuteStyle sets how minute displays roll over.
func WithMinuteStyle(style scoring.MinuteStyle) Option {
	return func(s *Service) {
		if style != "" {
			s.minuteStyle = style
		}
	}
}

// WithCatalog sets the per-90 eligibility table used for advanced stats.
func WithCatalog(c stats.Catalog) Option {
	return func(s *Service) {
		s.catalog = &c
	}
}

// WithAuthorizer decides which staff roles may change reports.
func WithAuthorizer(a access.Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.authorizer = a
		}
	}
}

// WithPublisher announces recomputed summaries.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
