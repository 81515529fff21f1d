// Package service wires the ranking store, the ingestion pipeline and the
// CRM refresh into the operations served by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kpiboard/internal/adapters/mq/queue"
	"github.com/okian/kpiboard/internal/adapters/mq/worker"
	"github.com/okian/kpiboard/internal/adapters/repository"
	"github.com/okian/kpiboard/internal/domain/dedupe"
	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/internal/domain/model"
	"github.com/okian/kpiboard/internal/domain/scoring"
	"github.com/okian/kpiboard/internal/session"
	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

// Source is the CRM backend the refresh pulls from.
type Source interface {
	ListSalesPeople(ctx context.Context) ([]model.SalesPerson, error)
	ActivePipelines(ctx context.Context, userID string) ([]model.PipelineEntry, error)
}

// SubmitResult reports what happened to a pushed snapshot.
type SubmitResult string

// Submit outcomes.
const (
	SubmitAccepted  SubmitResult = "accepted"
	SubmitDuplicate SubmitResult = "duplicate"
)

// Service implements the dependencies of the HTTP API.
type Service struct {
	mu sync.RWMutex

	store     *repository.TreapStore
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	processor *worker.Processor
	pool      *worker.Pool
	source    Source
	session   *session.Session

	workerCount      int
	queueSize        int
	dedupeSize       int
	fetchConcurrency int
	refreshInterval  time.Duration
	snapshotInterval time.Duration
	currencySymbol   string
	locale           string

	refreshMu   sync.Mutex
	lastRefresh atomic.Pointer[RefreshReport]

	started bool
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		dedupeSize:       50_000,
		fetchConcurrency: 8,
		snapshotInterval: time.Second,
		currencySymbol:   kpi.DefaultCurrencySymbol,
		locale:           "id",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pipeline and launches the workers and the refresh loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewTreapStore(runCtx, repository.WithSnapshotInterval(s.snapshotInterval))
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.processor = worker.NewProcessor(scoring.NewKPIScorer(scoring.WithLogger(s.logger.Named("scoring"))), s.store)
	s.pool = worker.NewPool(s.workerCount, s.queue, s.processor)
	s.pool.Start(runCtx)

	if s.source != nil && s.refreshInterval > 0 {
		s.loopWG.Add(1)
		go s.refreshLoop(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "kpiboard service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("fetchConcurrency", s.fetchConcurrency),
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.Bool("crmSource", s.source != nil),
	)
	return nil
}

// Stop drains the queue and releases every component.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()
	s.logger.Info(ctx, "stopping kpiboard service")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	s.loopWG.Wait()
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if closer, ok := s.deduper.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close deduper: %w", err))
		}
	}
	s.logger.Info(ctx, "kpiboard service stopped")
	return errors.Join(errs...)
}

// running returns the started components or ErrNotStarted.
func (s *Service) running() (*repository.TreapStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Submit accepts a pushed snapshot for asynchronous scoring. A snapshot id
// that was already accepted is reported as a duplicate and not queued again.
func (s *Service) Submit(ctx context.Context, snap model.Snapshot) (SubmitResult, error) { //nolint:gocritic // hugeParam
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, snap.SnapshotID) {
		metrics.RecordSnapshotDuplicate()
		s.logger.Debug(ctx, "duplicate snapshot skipped", logger.String("snapshotID", snap.SnapshotID))
		return SubmitDuplicate, nil
	}
	// A future ts would outrank every later CRM refresh for this person.
	if now := time.Now(); snap.TS.IsZero() || snap.TS.After(now) {
		snap.TS = now
	}
	if err := s.queue.Enqueue(ctx, snap); err != nil {
		s.deduper.Unrecord(ctx, snap.SnapshotID)
		if errors.Is(err, queue.ErrFull) {
			metrics.RecordSnapshotRejected("queue_full")
			return "", ErrQueueFull
		}
		metrics.RecordSnapshotRejected("enqueue_failed")
		return "", fmt.Errorf("enqueue snapshot %s: %w", snap.SnapshotID, err)
	}
	metrics.RecordSnapshotAccepted()
	return SubmitAccepted, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":           s.started,
		"worker_count":      s.workerCount,
		"queue_capacity":    s.queueSize,
		"fetch_concurrency": s.fetchConcurrency,
		"crm_source":        s.source != nil,
	}
	if !s.started {
		return stats
	}
	stats["queue_length"] = s.queue.Len(ctx)
	stats["people"] = s.store.Count(ctx)
	stats["dedupe_size"] = s.deduper.Size()
	if snap := s.store.LatestSnapshot(); snap != nil {
		stats["snapshot_age_ms"] = time.Since(snap.TakenAt).Milliseconds()
	}
	if r := s.LastRefresh(); r != nil {
		stats["last_refresh"] = r
	}
	if s.session != nil {
		if exp, err := s.session.TokenExpiry(); err == nil {
			stats["token_expires_at"] = exp.UTC().Format(time.RFC3339)
		}
	}
	return stats
}
