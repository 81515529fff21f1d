// Package worker scores queued snapshots and writes them to the ranking store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/kpiboard/internal/adapters/repository"
	"github.com/okian/kpiboard/internal/domain/model"
	"github.com/okian/kpiboard/internal/domain/scoring"
	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

// Upserter writes scored records.
type Upserter interface {
	Upsert(ctx context.Context, rec repository.Record) (bool, error)
}

// Queue defines how workers receive snapshots.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Snapshot
}

// Processor scores one snapshot and stores the result. It is shared by the
// worker pool and the synchronous refresh path.
type Processor struct {
	scorer scoring.Scorer
	store  Upserter
}

// NewProcessor creates a Processor.
func NewProcessor(scorer scoring.Scorer, store Upserter) *Processor {
	return &Processor{scorer: scorer, store: store}
}

// Process scores s and upserts the record. The returned bool reports
// whether the store changed.
func (p *Processor) Process(ctx context.Context, s model.Snapshot) (repository.Record, bool, error) { //nolint:gocritic // hugeParam: snapshots travel by value
	res, err := p.scorer.Score(ctx, scoring.Input{SalesID: s.SalesID, Name: s.Name, Metrics: s.Metrics})
	if err != nil {
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return repository.Record{}, false, fmt.Errorf("score snapshot %s: %w", s.SnapshotID, err)
	}
	rec := repository.Record{
		SalesID:    s.SalesID,
		Name:       s.Name,
		SnapshotID: s.SnapshotID,
		Metrics:    s.Metrics,
		Stages:     s.Stages,
		Result:     res.Result,
		UpdatedAt:  s.TS,
	}
	changed, err := p.store.Upsert(ctx, rec)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "store_error")
		return repository.Record{}, false, fmt.Errorf("store snapshot %s: %w", s.SnapshotID, err)
	}
	return rec, changed, nil
}

// InMemoryWorker drains a Queue through a Processor.
type InMemoryWorker struct {
	queue     Queue
	processor *Processor
	name      string
	logger    logger.Logger

	stop chan struct{}
	done chan struct{}
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, processor *Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes snapshots until the queue is drained and closed, ctx is
// done or Stop is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, s)
		}
	}
}

func (w *InMemoryWorker) handle(ctx context.Context, s model.Snapshot) { //nolint:gocritic // hugeParam
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	rec, changed, err := w.processor.Process(ctx, s)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "snapshot processing failed",
			logger.String("snapshotID", s.SnapshotID),
			logger.Error(err),
		)
		return
	}
	w.logger.Debug(ctx, "snapshot processed",
		logger.String("snapshotID", s.SnapshotID),
		logger.String("salesID", rec.SalesID),
		logger.Int("composite", rec.Result.Composite),
		logger.Bool("changed", changed),
	)
}

// Stop asks the worker to return without draining the queue.
func (w *InMemoryWorker) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	once    sync.Once
}

// NewPool creates a pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, queue Queue, processor *Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, processor, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Shutdown closes the queue so workers drain what is left, then waits for
// them. Workers still running when ctx ends are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}
		for i, w := range p.workers {
			select {
			case <-w.Done():
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				for _, rest := range p.workers[i:] {
					rest.Stop()
				}
				err = fmt.Errorf("worker pool shutdown: %w", ctx.Err())
			}
			if err != nil {
				break
			}
		}
		metrics.UpdateWorkerCount(0)
	})
	return err
}
