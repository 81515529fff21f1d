package service

import (
	"time"

	"github.com/okian/kpiboard/internal/domain/dedupe"
	"github.com/okian/kpiboard/internal/session"
	"github.com/okian/kpiboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the snapshot queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the default in-memory deduper.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDeduper replaces the in-memory deduper, e.g. with a Redis one.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithSource sets the CRM backend used by Refresh.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithFetchConcurrency caps parallel per-person fetches during Refresh.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithRefreshInterval schedules periodic refreshes. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithSnapshotInterval sets how often the ranking store rebuilds its snapshot.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithCurrency sets the default currency symbol and locale for money display.
func WithCurrency(symbol, locale string) Option {
	return func(s *Service) {
		if symbol != "" {
			s.currencySymbol = symbol
		}
		if locale != "" {
			s.locale = locale
		}
	}
}

// WithSession attaches the application session. Its settings override the
// currency defaults and a rejected token is cleared from it.
func WithSession(sess *session.Session) Option {
	return func(s *Service) {
		s.session = sess
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
