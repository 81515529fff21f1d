// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/okian/kpiboard/internal/app"
	"github.com/okian/kpiboard/internal/domain/types"
	"github.com/okian/kpiboard/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	LeaderboardDependencies
	RankDependencies
	HeatmapDependencies
	TeamDependencies
	RefreshDependencies
	SnapshotDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	snapshotsHandler   *SnapshotsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	heatmapHandler     *HeatmapHandler
	teamHandler        *TeamHandler
	refreshHandler     *RefreshHandler

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		snapshotsHandler:   NewSnapshotsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		heatmapHandler:     NewHeatmapHandler(deps),
		teamHandler:        NewTeamHandler(deps),
		refreshHandler:     NewRefreshHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", s.instrument(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/snapshots", s.instrument(s.snapshotsHandler.HandlePostSnapshot, "snapshots"))
	mux.HandleFunc("/leaderboard", s.instrument(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/{sales_id}", s.instrument(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/heatmap", s.instrument(s.heatmapHandler.HandleGetHeatmap, "heatmap"))
	mux.HandleFunc("/team/summary", s.instrument(s.teamHandler.HandleGetSummary, "team_summary"))
	mux.HandleFunc("/refresh", s.instrument(s.refreshHandler.HandlePostRefresh, "refresh"))
}

func (s *Server) instrument(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return metricsMiddleware(next, endpoint, s.logger)
}

// refreshResponse is the body of POST /refresh.
type refreshResponse struct {
	Status string `json:"status"`
	service.RefreshReport
}

// snapshotRequest mirrors the OpenAPI schema for POST /snapshots.
type snapshotRequest struct {
	SnapshotID string          `json:"snapshot_id" validate:"required,max=128"`
	SalesID    string          `json:"sales_id" validate:"required,max=128"`
	Name       string          `json:"name" validate:"max=256"`
	Metrics    snapshotMetrics `json:"metrics"`
	Stages     []int           `json:"stages" validate:"omitempty,max=10000,dive,min=0,max=5"`
	TS         string          `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// snapshotMetrics are the pushed counters. Counters cannot be negative.
type snapshotMetrics struct {
	MonthsActive   float64 `json:"months_active" validate:"gte=0"`
	TotalPipelines float64 `json:"total_pipelines" validate:"gte=0"`
	TotalCustomers float64 `json:"total_customers" validate:"gte=0"`
	YearlyTarget   float64 `json:"yearly_target" validate:"gte=0"`
	V1             float64 `json:"v1" validate:"gte=0"`
	V2             float64 `json:"v2" validate:"gte=0"`
	V3             float64 `json:"v3" validate:"gte=0"`
	Close          float64 `json:"close" validate:"gte=0"`
	Repeat         float64 `json:"repeat" validate:"gte=0"`
	SalesAchieved  float64 `json:"sales_achieved" validate:"gte=0"`
	SocPosts       float64 `json:"soc_posts" validate:"gte=0"`
	ActCount       float64 `json:"act_count" validate:"gte=0"`
	HotProspects   float64 `json:"hot_prospects" validate:"gte=0"`
	ClosingCount   float64 `json:"closing_count" validate:"gte=0"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}
