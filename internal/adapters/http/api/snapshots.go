package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	service "github.com/okian/kpiboard/internal/app"
	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/internal/domain/model"
)

const maxSnapshotBody = 1 << 20

// SnapshotDependencies defines the interface for snapshot ingestion.
type SnapshotDependencies interface {
	Submit(ctx context.Context, snap model.Snapshot) (service.SubmitResult, error)
}

// SnapshotsHandler handles pushed metric snapshots.
type SnapshotsHandler struct {
	deps     SnapshotDependencies
	validate *validator.Validate
}

// NewSnapshotsHandler creates a new snapshots handler.
func NewSnapshotsHandler(deps SnapshotDependencies) *SnapshotsHandler {
	return &SnapshotsHandler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HandlePostSnapshot handles POST /snapshots requests.
func (h *SnapshotsHandler) HandlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_snapshot"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req snapshotRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	snap, err := req.toSnapshot()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Submit(r.Context(), snap)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	if res == service.SubmitDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: string(res), Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: string(res)})
}

// maxClockSkew is how far ahead of the server clock a pushed ts may be.
const maxClockSkew = 5 * time.Minute

func (r snapshotRequest) toSnapshot() (model.Snapshot, error) { //nolint:gocritic // hugeParam
	var ts time.Time
	if r.TS != "" {
		parsed, err := time.Parse(time.RFC3339, r.TS)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("invalid ts; must be RFC3339: %w", err)
		}
		if parsed.After(time.Now().Add(maxClockSkew)) {
			return model.Snapshot{}, fmt.Errorf("invalid ts; %s is in the future", r.TS)
		}
		ts = parsed
	}
	m := r.Metrics
	return model.Snapshot{
		SnapshotID: r.SnapshotID,
		SalesID:    r.SalesID,
		Name:       r.Name,
		Metrics: kpi.Metrics{
			MonthsActive:   m.MonthsActive,
			TotalPipelines: m.TotalPipelines,
			TotalCustomers: m.TotalCustomers,
			YearlyTarget:   m.YearlyTarget,
			V1:             m.V1,
			V2:             m.V2,
			V3:             m.V3,
			Close:          m.Close,
			Repeat:         m.Repeat,
			SalesAchieved:  m.SalesAchieved,
			SocPosts:       m.SocPosts,
			ActCount:       m.ActCount,
			HotProspects:   m.HotProspects,
			ClosingCount:   m.ClosingCount,
		},
		Stages: append([]int(nil), r.Stages...),
		TS:     ts,
	}, nil
}
