package kpi

import "math"

// Pipeline stage boundaries used for prospect bucketing.
const (
	warmStageMax = 2
	hotStage     = 3
)

// Member is one salesperson as seen by the team rollup.
type Member struct {
	// Metrics are the counters as reported, before Normalize. YearlyTarget
	// of 0 means no target was set and contributes nothing to TotalTarget.
	Metrics Metrics
	// Vector is the person's clamped sub-scores.
	Vector Vector
	// Stages lists the stage number of each active pipeline entry.
	// A stage of 0 means the entry has no stage and is not bucketed.
	Stages []int
}

// Prospects counts pipeline entries per bucket.
type Prospects struct {
	Warm   int `json:"warm"`
	Hot    int `json:"hot"`
	Closed int `json:"closed"`
}

// Add buckets a single stage.
func (p *Prospects) Add(stage int) {
	switch {
	case stage <= 0:
		return
	case stage <= warmStageMax:
		p.Warm++
	case stage == hotStage:
		p.Hot++
	default:
		p.Closed++
	}
}

// BucketStages counts warm (<=2), hot (==3) and closed (>=4) stages.
func BucketStages(stages []int) Prospects {
	var p Prospects
	for _, s := range stages {
		p.Add(s)
	}
	return p
}

// Summary is the team-level rollup.
type Summary struct {
	People       int     `json:"people"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalTarget  float64 `json:"total_target"`
	// RevenueProgress is TotalRevenue/TotalTarget*100, unclamped. It is 0
	// when HasTarget is false.
	RevenueProgress float64 `json:"revenue_progress"`
	// RevenueProgressBar is RevenueProgress clamped to [0,100] for rendering.
	RevenueProgressBar float64 `json:"revenue_progress_bar"`
	HasTarget          bool    `json:"has_target"`
	AvgKPIScore        int     `json:"avg_kpi_score"`
	Prospects
}

// Rollup aggregates a team. An empty team yields a zero Summary.
func Rollup(members []Member) Summary {
	var (
		s        Summary
		subTotal int
	)
	s.People = len(members)
	for _, m := range members {
		subTotal += m.Vector.Composite()
		s.TotalRevenue += finite(m.Metrics.SalesAchieved)
		if t := finite(m.Metrics.YearlyTarget); t > 0 {
			s.TotalTarget += t
		}
		for _, st := range m.Stages {
			s.Prospects.Add(st)
		}
	}

	if s.People > 0 {
		s.AvgKPIScore = int(math.Round(float64(subTotal) / float64(s.People*Size)))
	}

	if s.TotalTarget > 0 {
		s.HasTarget = true
		s.RevenueProgress = s.TotalRevenue / s.TotalTarget * percent
		s.RevenueProgressBar = math.Max(0, math.Min(percent, s.RevenueProgress))
	}
	return s
}
