// Package loadgen pushes synthetic metric snapshots to a running kpiboard
// and checks that the leaderboard agrees with locally computed scores.
package loadgen

import (
	"time"

	"github.com/okian/kpiboard/internal/domain/kpi"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	People      int           // Number of distinct salespeople
	Snapshots   int           // Snapshots per person; the last one wins
	Duplicates  int           // Extra re-sends of already submitted snapshot ids
	TopN        int           // Leaderboard size to verify
	Workers     int           // Concurrent HTTP workers
	Timeout     time.Duration // Per-request timeout
	WaitTimeout time.Duration // How long to wait for the service to score everything
	Seed        uint64        // Generator seed; 0 picks one from the clock
}

// Snapshot is the POST /snapshots body.
type Snapshot struct {
	SnapshotID string      `json:"snapshot_id"`
	SalesID    string      `json:"sales_id"`
	Name       string      `json:"name"`
	Metrics    kpi.Metrics `json:"metrics"`
	Stages     []int       `json:"stages,omitempty"`
	TS         string      `json:"ts"`
}

// Entry is a leaderboard row as served by the API.
type Entry struct {
	Rank           int    `json:"rank"`
	SalesID        string `json:"sales_id"`
	Name           string `json:"name"`
	CompositeScore int    `json:"composite_score"`
	Level          string `json:"level"`
}

// AckResponse is the response to a snapshot submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Accepted    int
	Duplicate   int
	Failed      int
	Verified    int
	Mismatched  int
	Leaderboard int
	Duration    time.Duration
}
