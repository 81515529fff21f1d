// Package kpi turns a salesperson's raw activity counters into ten
// normalized 0-100 sub-scores, a composite score and a level label.
//
// Everything in this package is a pure computation over already-fetched
// data. It performs no I/O and is safe for concurrent use.
package kpi

import (
	"math"
)

// Scoring constants.
const (
	// Size is the number of sub-scores in a Vector.
	Size = 10

	maxSubScore = 100

	// MaxComposite is the highest possible composite score.
	MaxComposite = Size * maxSubScore

	expectedPostsPerMonth      = 8.0
	expectedActivitiesPerMonth = 4.0
	hotProspectBenchmark       = 0.5
	closingRatioBenchmark      = 0.1
	percent                    = 100.0
)

// Sub-score positions inside a Vector.
const (
	Visit1 = iota
	Visit2
	Visit3
	Closing
	Repeat
	RevenueAchievement
	SocialActivity
	GeneralActivity
	HotProspectRatio
	ClosingRatio
)

// Labels are the display names of the sub-scores, in Vector order.
var Labels = [Size]string{
	"Visit 1",
	"Visit 2",
	"Visit 3",
	"Closing",
	"Repeat",
	"Revenue Achievement",
	"Social Activity",
	"General Activity",
	"Hot Prospect Ratio",
	"Closing Ratio",
}

// Metrics holds the raw counters of one salesperson.
//
// Denominators (MonthsActive, TotalPipelines, TotalCustomers, YearlyTarget)
// are expected to be >= 1; call Normalize to enforce that.
type Metrics struct {
	MonthsActive   float64 `json:"months_active" yaml:"months_active"`
	TotalPipelines float64 `json:"total_pipelines" yaml:"total_pipelines"`
	TotalCustomers float64 `json:"total_customers" yaml:"total_customers"`
	YearlyTarget   float64 `json:"yearly_target" yaml:"yearly_target"`

	V1            float64 `json:"v1" yaml:"v1"`
	V2            float64 `json:"v2" yaml:"v2"`
	V3            float64 `json:"v3" yaml:"v3"`
	Close         float64 `json:"close" yaml:"close"`
	Repeat        float64 `json:"repeat" yaml:"repeat"`
	SalesAchieved float64 `json:"sales_achieved" yaml:"sales_achieved"`
	SocPosts      float64 `json:"soc_posts" yaml:"soc_posts"`
	ActCount      float64 `json:"act_count" yaml:"act_count"`
	HotProspects  float64 `json:"hot_prospects" yaml:"hot_prospects"`
	ClosingCount  float64 `json:"closing_count" yaml:"closing_count"`
}

// Normalize returns a copy with every denominator forced to >= 1 and every
// non-finite counter replaced by 0.
func (m Metrics) Normalize() Metrics {
	m.MonthsActive = denominator(m.MonthsActive)
	m.TotalPipelines = denominator(m.TotalPipelines)
	m.TotalCustomers = denominator(m.TotalCustomers)
	m.YearlyTarget = denominator(m.YearlyTarget)

	for _, p := range []*float64{
		&m.V1, &m.V2, &m.V3, &m.Close, &m.Repeat, &m.SalesAchieved,
		&m.SocPosts, &m.ActCount, &m.HotProspects, &m.ClosingCount,
	} {
		*p = finite(*p)
	}
	return m
}

func denominator(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
		return 1
	}
	return x
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Vector is the ordered set of ten clamped sub-scores.
type Vector [Size]int

// Composite returns the sum of all sub-scores (0-1000).
func (v Vector) Composite() int {
	total := 0
	for _, s := range v {
		total += s
	}
	return total
}

// Slice returns the vector as a slice, handy for JSON series.
func (v Vector) Slice() []int {
	out := make([]int, Size)
	copy(out, v[:])
	return out
}

// ClampScore rounds raw half away from zero and clamps it into [0,100].
// NaN maps to 0.
func ClampScore(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	return int(math.Max(0, math.Min(maxSubScore, math.Round(raw))))
}

// Calculate computes the sub-score vector for m. Denominators are
// normalized first, so a zero-valued Metrics yields an all-zero vector.
func Calculate(m Metrics) Vector {
	m = m.Normalize()

	var raw [Size]float64
	raw[Visit1] = m.V1 / m.TotalPipelines * percent
	raw[Visit2] = m.V2 / m.TotalPipelines * percent
	raw[Visit3] = m.V3 / m.TotalPipelines * percent
	raw[Closing] = m.Close / m.TotalPipelines * percent
	raw[Repeat] = m.Repeat / m.TotalPipelines * percent
	raw[RevenueAchievement] = m.SalesAchieved / m.YearlyTarget * percent
	raw[SocialActivity] = m.SocPosts / (expectedPostsPerMonth * m.MonthsActive) * percent
	raw[GeneralActivity] = m.ActCount / (expectedActivitiesPerMonth * m.MonthsActive) * percent
	raw[HotProspectRatio] = (m.HotProspects / m.TotalCustomers) / hotProspectBenchmark * percent
	raw[ClosingRatio] = (m.ClosingCount / m.TotalCustomers) / closingRatioBenchmark * percent

	var v Vector
	for i, r := range raw {
		v[i] = ClampScore(r)
	}
	return v
}

// Result bundles everything a badge or heatmap row needs.
type Result struct {
	Vector    Vector `json:"scores"`
	Composite int    `json:"composite_score"`
	Level     Level  `json:"level"`
}

// Score computes the vector, composite and level for m.
func Score(m Metrics) Result {
	v := Calculate(m)
	c := v.Composite()
	return Result{Vector: v, Composite: c, Level: Classify(c)}
}
