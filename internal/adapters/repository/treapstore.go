package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: composite DESC, then sales id ASC. "less" means ranks earlier,
// so an in-order traversal yields the leaderboard from best to worst.
// Ranks are dense: equal composites share a rank and the next distinct
// composite gets the next integer.

// Snapshot is an immutable view of the store rebuilt in the background.
type Snapshot struct {
	RankByID map[string]int
	TopCache []Entry // first entries in rank order
	Count    int
	TakenAt  time.Time
}

type node struct {
	id        string
	composite int
	prio      uint64
	left      *node
	right     *node
	size      int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, composite int) *node {
	if n == nil {
		return &node{id: id, composite: composite, prio: rand.Uint64(), size: 1}
	}
	if less(composite, id, n.composite, n.id) {
		n.left = insert(n.left, id, composite)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, composite)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, composite int) *node {
	if n == nil {
		return nil
	}
	switch {
	case composite == n.composite && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, composite)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, composite)
		}
	case less(composite, id, n.composite, n.id):
		n.left = deleteNode(n.left, id, composite)
	default:
		n.right = deleteNode(n.right, id, composite)
	}
	fix(n)
	return n
}

// collect appends up to limit entries in rank order with dense ranks.
func collect(n *node, limit int, byID map[string]Record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, byID, out)
	if len(*out) < limit {
		if rec, ok := byID[n.id]; ok {
			rank := 1
			if k := len(*out); k > 0 {
				prev := (*out)[k-1]
				rank = prev.Rank
				if prev.Result.Composite != rec.Result.Composite {
					rank++
				}
			}
			*out = append(*out, Entry{Rank: rank, Record: rec})
		}
	}
	collect(n.right, limit, byID, out)
}

// TreapStore is a Store backed by a treap plus a per-composite histogram
// that answers dense-rank queries without walking the tree.
type TreapStore struct {
	mu               sync.RWMutex
	root             *node
	byID             map[string]Record
	distinct         [kpi.MaxComposite + 1]int
	snapshotInterval time.Duration
	topCacheSize     int

	snapshot atomic.Pointer[Snapshot]

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store and starts periodic snapshots,
// which stop when ctx is done or Close is called.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:             make(map[string]Record),
		snapshotInterval: time.Second,
		topCacheSize:     100,
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishSnapshot()
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

func (s *TreapStore) publishSnapshot() {
	start := time.Now()
	s.mu.RLock()
	top := make([]Entry, 0, min(s.topCacheSize, len(s.byID)))
	collect(s.root, s.topCacheSize, s.byID, &top)
	ranks := make(map[string]int, len(s.byID))
	for id, rec := range s.byID {
		ranks[id] = s.denseRankLocked(rec.Result.Composite)
	}
	count := len(s.byID)
	s.mu.RUnlock()

	now := time.Now()
	s.snapshot.Store(&Snapshot{RankByID: ranks, TopCache: top, Count: count, TakenAt: now})
	metrics.RecordRepositorySnapshot(time.Since(start).Seconds(), now.Unix())
	metrics.UpdateRepositoryRecords(count)
}

// LatestSnapshot returns the most recently published snapshot.
func (s *TreapStore) LatestSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// Close stops the snapshot goroutine. It is safe to call more than once.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Upsert implements Store.Upsert in O(log n) expected time.
func (s *TreapStore) Upsert(_ context.Context, rec Record) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if rec.SalesID == "" {
		metrics.RecordErrorByComponent("repository", "invalid_id")
		return false, ErrInvalidID
	}
	c := rec.Result.Composite
	if c < 0 || c > kpi.MaxComposite {
		metrics.RecordErrorByComponent("repository", "invalid_score")
		return false, ErrInvalidScore
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[rec.SalesID]; ok {
		if !old.UpdatedAt.IsZero() && rec.UpdatedAt.Before(old.UpdatedAt) {
			return false, nil
		}
		s.root = deleteNode(s.root, old.SalesID, old.Result.Composite)
		s.distinct[old.Result.Composite]--
	}
	rec.Stages = append([]int(nil), rec.Stages...)
	s.byID[rec.SalesID] = rec
	s.root = insert(s.root, rec.SalesID, c)
	s.distinct[c]++
	return true, nil
}

// denseRankLocked returns 1 + the number of distinct composites above c.
func (s *TreapStore) denseRankLocked(c int) int {
	rank := 1
	for v := kpi.MaxComposite; v > c; v-- {
		if s.distinct[v] > 0 {
			rank++
		}
	}
	return rank
}

// Rank implements Store.Rank.
func (s *TreapStore) Rank(_ context.Context, salesID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[salesID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: s.denseRankLocked(rec.Result.Composite), Record: rec}, nil
}

// TopN implements Store.TopN.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, min(n, len(s.byID)))
	collect(s.root, n, s.byID, &out)
	return out, nil
}

// All implements Store.All.
func (s *TreapStore) All(_ context.Context) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.byID))
	collect(s.root, len(s.byID), s.byID, &out)
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
