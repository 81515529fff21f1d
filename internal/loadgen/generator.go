package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kpiboard/internal/domain/kpi"
)

// Performer profiles. Each scales the activity counters relative to the
// pipeline size so composites spread across every level.
var profiles = []struct {
	name     string
	minShare float64
	maxShare float64
}{
	{"low", 0.0, 0.3},
	{"average", 0.3, 0.6},
	{"good", 0.5, 0.8},
	{"strong", 0.7, 1.0},
	{"elite", 0.9, 1.2},
}

const maxStage = 5

type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(seed uint64) *generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{rng: rand.New(rand.NewPCG(seed, seed>>1|1)), now: time.Now().UTC()}
}

// generate returns cfg.Snapshots snapshots per person, oldest first, and
// the snapshot expected to win for each person.
func (g *generator) generate(cfg *Config) (all []Snapshot, latest map[string]Snapshot) {
	all = make([]Snapshot, 0, cfg.People*cfg.Snapshots)
	latest = make(map[string]Snapshot, cfg.People)
	for p := 0; p < cfg.People; p++ {
		salesID := uuid.NewString()
		name := fmt.Sprintf("Sales %04d", p+1)
		for i := 0; i < cfg.Snapshots; i++ {
			ts := g.now.Add(time.Duration(i-cfg.Snapshots) * time.Minute)
			s := Snapshot{
				SnapshotID: uuid.NewString(),
				SalesID:    salesID,
				Name:       name,
				Metrics:    g.metrics(),
				Stages:     g.stages(),
				TS:         ts.Format(time.RFC3339),
			}
			all = append(all, s)
			latest[salesID] = s
		}
	}
	return all, latest
}

func (g *generator) share(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *generator) metrics() kpi.Metrics {
	p := profiles[g.rng.IntN(len(profiles))]
	months := float64(1 + g.rng.IntN(12))
	pipelines := float64(10 + g.rng.IntN(90))
	customers := float64(5 + g.rng.IntN(45))
	target := float64(100+g.rng.IntN(900)) * 1_000_000
	s := func() float64 { return g.share(p.minShare, p.maxShare) }

	return kpi.Metrics{
		MonthsActive:   months,
		TotalPipelines: pipelines,
		TotalCustomers: customers,
		YearlyTarget:   target,
		V1:             float64(int(pipelines * s())),
		V2:             float64(int(pipelines * s() * 0.8)),
		V3:             float64(int(pipelines * s() * 0.6)),
		Close:          float64(int(pipelines * s() * 0.4)),
		Repeat:         float64(int(pipelines * s() * 0.2)),
		SalesAchieved:  float64(int(target * s())),
		SocPosts:       float64(int(8 * months * s())),
		ActCount:       float64(int(4 * months * s())),
		HotProspects:   float64(int(customers * 0.5 * s())),
		ClosingCount:   float64(int(customers * 0.1 * s())),
	}
}

func (g *generator) stages() []int {
	stages := make([]int, g.rng.IntN(8))
	for i := range stages {
		stages[i] = g.rng.IntN(maxStage + 1)
	}
	return stages
}
