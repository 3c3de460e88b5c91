package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// handlePlan plans (or re-plans) a campaign. The optional body carries
// operator overrides; each override caps one vendor and records its reason.
// Planning a completed or cancelled campaign is HTTP 409; a partial plan is
// a normal 200 with `result.partial` set, not an error.
func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		Overrides []port.VendorOverride `json:"overrides"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
	}
	for _, ov := range body.Overrides {
		if ov.MaxStreams < 0 || ov.Reason == "" {
			http.Error(w, "overrides require a non-negative cap and a reason", http.StatusBadRequest)
			return
		}
	}

	outcome, err := h.planner.Plan(r.Context(), port.PlanRequest{CampaignID: campaignID, Overrides: body.Overrides})
	switch {
	case errors.Is(err, port.ErrCampaignNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, port.ErrCampaignNotPlannable):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, port.ErrCapacityConflict):
		http.Error(w, "capacity contention, retry later", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("plan error", slog.Int64("campaign", campaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, planResponse{
		SetID:       outcome.Set.ID.String(),
		Result:      outcome.Result,
		Allocations: toAllocationDTOs(outcome.Allocations),
	})
}

type planResponse struct {
	SetID       string              `json:"set_id"`
	Result      port.PlanningResult `json:"result"`
	Allocations []allocationDTO     `json:"allocations"`
}

type allocationDTO struct {
	VendorID         int64  `json:"vendor_id"`
	PlaylistID       *int64 `json:"playlist_id,omitempty"`
	AllocatedStreams int64  `json:"allocated_streams"`
	AllocatedBudget  int64  `json:"allocated_budget"`
	BoundBy          string `json:"bound_by"`
	OverrideReason   string `json:"override_reason,omitempty"`
}

func toAllocationDTOs(allocations []domain.Allocation) []allocationDTO {
	out := make([]allocationDTO, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, allocationDTO{
			VendorID:         a.VendorID,
			PlaylistID:       a.PlaylistID,
			AllocatedStreams: a.AllocatedStreams,
			AllocatedBudget:  a.AllocatedBudget,
			BoundBy:          string(a.BoundBy),
			OverrideReason:   a.OverrideReason,
		})
	}
	return out
}
