package api

import (
	"context"
	"net/http"

	service "github.com/okian/kpiboard/internal/app"
)

// RefreshDependencies defines the interface for on-demand CRM refreshes.
type RefreshDependencies interface {
	Refresh(ctx context.Context) (service.RefreshReport, error)
}

// RefreshHandler handles refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandlePostRefresh handles POST /refresh requests. The refresh runs in the
// request; 409 is returned while another refresh is running.
func (h *RefreshHandler) HandlePostRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	report, err := h.deps.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, Wrap("api.post_refresh", err))
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Status: "ok", RefreshReport: report})
}
