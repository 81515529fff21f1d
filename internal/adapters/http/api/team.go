package api

import (
	"context"
	"net/http"

	"github.com/okian/kpiboard/internal/domain/types"
)

// HeatmapDependencies defines the interface for the heatmap read model.
type HeatmapDependencies interface {
	Heatmap(ctx context.Context) (types.Heatmap, error)
}

// TeamDependencies defines the interface for the team summary read model.
type TeamDependencies interface {
	TeamSummary(ctx context.Context) (types.TeamSummary, error)
}

// HeatmapHandler handles heatmap requests.
type HeatmapHandler struct {
	deps HeatmapDependencies
}

// NewHeatmapHandler creates a new heatmap handler.
func NewHeatmapHandler(deps HeatmapDependencies) *HeatmapHandler {
	return &HeatmapHandler{deps: deps}
}

// HandleGetHeatmap handles GET /heatmap requests.
func (h *HeatmapHandler) HandleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	hm, err := h.deps.Heatmap(r.Context())
	if err != nil {
		writeServiceError(w, Wrap("api.get_heatmap", err))
		return
	}
	writeJSON(w, http.StatusOK, hm)
}

// TeamHandler handles team summary requests.
type TeamHandler struct {
	deps TeamDependencies
}

// NewTeamHandler creates a new team summary handler.
func NewTeamHandler(deps TeamDependencies) *TeamHandler {
	return &TeamHandler{deps: deps}
}

// HandleGetSummary handles GET /team/summary requests.
func (h *TeamHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sum, err := h.deps.TeamSummary(r.Context())
	if err != nil {
		writeServiceError(w, Wrap("api.get_team_summary", err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
