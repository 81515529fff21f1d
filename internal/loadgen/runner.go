package loadgen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/pkg/logger"
)

// ErrMismatch is returned when the service disagrees with the local scores.
var ErrMismatch = errors.New("leaderboard verification failed")

const pollInterval = 100 * time.Millisecond

// Run generates snapshots, submits them, waits for the service to score
// them and verifies ranks and the leaderboard.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	var stats Stats
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()
	setDefaults(cfg)
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("people", cfg.People),
		logger.Int("snapshots", cfg.Snapshots),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	all, latest := newGenerator(cfg.Seed).generate(cfg)
	stats.Generated = len(all)

	resend := all[:min(cfg.Duplicates, len(all))]
	if err := submitAll(ctx, c, cfg.Workers, all, &stats); err != nil {
		return stats, err
	}
	if err := submitAll(ctx, c, cfg.Workers, resend, &stats); err != nil {
		return stats, err
	}
	log.Info(ctx, "snapshots submitted",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))

	expected := make(map[string]int, len(latest))
	for id, s := range latest {
		expected[id] = kpi.Score(s.Metrics).Composite
	}
	if err := awaitScores(ctx, c, cfg, expected, &stats); err != nil {
		return stats, err
	}

	board, err := c.leaderboard(ctx, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Leaderboard = len(board)
	if err := verifyLeaderboard(board, expected); err != nil {
		return stats, err
	}
	log.Info(ctx, "load run verified",
		logger.Int("verified", stats.Verified),
		logger.Int("leaderboard", stats.Leaderboard),
		logger.Duration("took", time.Since(start)))
	return stats, nil
}

func setDefaults(cfg *Config) {
	if cfg.People < 1 {
		cfg.People = 1
	}
	if cfg.Snapshots < 1 {
		cfg.Snapshots = 1
	}
	if cfg.TopN < 1 {
		cfg.TopN = 10
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = time.Minute
	}
}

func submitAll(ctx context.Context, c *client, workers int, snaps []Snapshot, stats *Stats) error {
	var accepted, duplicate, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range snaps {
		g.Go(func() error {
			switch c.submit(gctx, &snaps[i]) {
			case outcomeAccepted:
				accepted.Add(1)
			case outcomeDuplicate:
				duplicate.Add(1)
			default:
				failed.Add(1)
			}
			return gctx.Err()
		})
	}
	err := g.Wait()
	stats.Submitted += len(snaps)
	stats.Accepted += int(accepted.Load())
	stats.Duplicate += int(duplicate.Load())
	stats.Failed += int(failed.Load())
	if err != nil {
		return fmt.Errorf("snapshot submission interrupted: %w", err)
	}
	return nil
}

// awaitScores polls /rank until every person carries the expected
// composite or the wait times out.
func awaitScores(ctx context.Context, c *client, cfg *Config, expected map[string]int, stats *Stats) error {
	pending := make(map[string]int, len(expected))
	for id, v := range expected {
		pending[id] = v
	}
	deadline := time.Now().Add(cfg.WaitTimeout)
	for {
		for id, want := range pending {
			e, err := c.rank(ctx, id)
			if err == nil && e.CompositeScore == want {
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			stats.Verified = len(expected)
			return nil
		}
		if time.Now().After(deadline) {
			stats.Verified = len(expected) - len(pending)
			stats.Mismatched = len(pending)
			return fmt.Errorf("%w: %d of %d people not scored as expected", ErrMismatch, len(pending), len(expected))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// verifyLeaderboard checks ordering, dense ranks and that the served
// entries are the true top of the expected scores.
func verifyLeaderboard(board []Entry, expected map[string]int) error {
	want := make([]Entry, 0, len(expected))
	for id, v := range expected {
		want = append(want, Entry{SalesID: id, CompositeScore: v})
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].CompositeScore != want[j].CompositeScore {
			return want[i].CompositeScore > want[j].CompositeScore
		}
		return want[i].SalesID < want[j].SalesID
	})
	if len(board) > len(want) {
		return fmt.Errorf("%w: %d entries for %d people", ErrMismatch, len(board), len(want))
	}
	if len(board) == 0 && len(want) > 0 {
		return fmt.Errorf("%w: empty leaderboard", ErrMismatch)
	}

	rank := 0
	for i, e := range board {
		if i == 0 || e.CompositeScore != board[i-1].CompositeScore {
			rank++
		}
		if e.Rank != rank {
			return fmt.Errorf("%w: entry %d has rank %d, want %d", ErrMismatch, i, e.Rank, rank)
		}
		if e.SalesID != want[i].SalesID || e.CompositeScore != want[i].CompositeScore {
			return fmt.Errorf("%w: entry %d is %s (%d), want %s (%d)", ErrMismatch,
				i, e.SalesID, e.CompositeScore, want[i].SalesID, want[i].CompositeScore)
		}
		if e.Level != string(kpi.Classify(e.CompositeScore)) {
			return fmt.Errorf("%w: entry %d has level %q", ErrMismatch, i, e.Level)
		}
	}
	return nil
}
