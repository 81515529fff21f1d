// Package repository holds the ranking store: every scored salesperson,
// ordered by composite score.
package repository

import (
	"context"
	"time"

	"github.com/okian/kpiboard/internal/domain/kpi"
)

// Record is the latest scored state of one salesperson.
type Record struct {
	SalesID    string
	Name       string
	SnapshotID string
	Metrics    kpi.Metrics
	Stages     []int
	Result     kpi.Result
	UpdatedAt  time.Time
}

// Entry is a ranked Record.
type Entry struct {
	Rank int
	Record
}

// Store provides read/write access to the ranking state.
type Store interface {
	// Upsert replaces the salesperson's record. A record observed before the
	// stored one is ignored. Returns true when the store changed.
	Upsert(ctx context.Context, rec Record) (bool, error)

	// Rank returns the dense rank and record for a salesperson.
	// Returns ErrNotFound if the salesperson is unknown.
	Rank(ctx context.Context, salesID string) (Entry, error)

	// TopN returns the top-N entries ordered by composite desc, sales id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// All returns every entry in rank order.
	All(ctx context.Context) ([]Entry, error)

	// Count returns the number of salespeople tracked.
	Count(ctx context.Context) int
}
