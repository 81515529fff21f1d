// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/kpiboard/internal/domain/kpi"
)

// SalesPerson is a sales user together with the aggregate counters the CRM
// reports for them.
type SalesPerson struct {
	ID      string
	Name    string
	Metrics kpi.Metrics
}

// PipelineEntry is one active customer pipeline owned by a salesperson.
// Stage is 1-5 (New, Warm, Hot, Deal Won, After Sales); 0 means unknown.
type PipelineEntry struct {
	ID          string
	Stage       int
	Status      string
	Contact     string
	Institution string
	CreatedAt   time.Time
}

// Profile is everything fetched for one salesperson during a refresh.
type Profile struct {
	Person    SalesPerson
	Pipelines []PipelineEntry
	// Degraded is set when the per-person fetch failed and Person.Metrics
	// was replaced with an all-zero record.
	Degraded bool
}

// Stages returns the stage of every pipeline entry.
func (p Profile) Stages() []int {
	stages := make([]int, 0, len(p.Pipelines))
	for _, e := range p.Pipelines {
		stages = append(stages, e.Stage)
	}
	return stages
}

// Snapshot is a metrics record waiting to be scored. Pushed snapshots and
// refresh results are both scored in this shape.
type Snapshot struct {
	SnapshotID string      // unique id for idempotency
	SalesID    string      // salesperson identifier
	Name       string      // display name
	Metrics    kpi.Metrics // raw counters, not yet normalized
	Stages     []int       // pipeline stages for prospect bucketing
	TS         time.Time   // when the counters were observed
}

// SnapshotFromProfile converts a refresh result into a Snapshot.
func SnapshotFromProfile(id string, p Profile, ts time.Time) Snapshot {
	return Snapshot{
		SnapshotID: id,
		SalesID:    p.Person.ID,
		Name:       p.Person.Name,
		Metrics:    p.Person.Metrics,
		Stages:     p.Stages(),
		TS:         ts,
	}
}
