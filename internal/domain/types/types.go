// Package types contains the read shapes served by the HTTP API.
package types

import "github.com/okian/kpiboard/internal/domain/kpi"

// Entry is a badge/ranking row.
type Entry struct {
	Rank           int       `json:"rank"`
	SalesID        string    `json:"sales_id"`
	Name           string    `json:"name"`
	CompositeScore int       `json:"composite_score"`
	Level          kpi.Level `json:"level"`
}

// HeatmapSeries is one person's ten sub-scores in kpi.Labels order.
type HeatmapSeries struct {
	SalesID string `json:"sales_id"`
	Name    string `json:"name"`
	Data    []int  `json:"data"`
}

// Heatmap is the full heatmap payload.
type Heatmap struct {
	Categories []string        `json:"categories"`
	Series     []HeatmapSeries `json:"series"`
}

// NewHeatmap returns an empty heatmap with the category labels filled in.
func NewHeatmap(capacity int) Heatmap {
	return Heatmap{
		Categories: append([]string(nil), kpi.Labels[:]...),
		Series:     make([]HeatmapSeries, 0, capacity),
	}
}

// TeamSummary is the team panel payload: the rollup plus display strings.
type TeamSummary struct {
	kpi.Summary
	TotalRevenueDisplay string `json:"total_revenue_display"`
	TotalTargetDisplay  string `json:"total_target_display"`
}
