package httpadapter

import (
	"log/slog"
	"net/http"
	"time"
)

// handleAllocations returns the campaign's current allocation set for the
// dashboard's funnel and profitability views. Campaigns that were never
// planned return HTTP 404.
func (h *Handler) handleAllocations(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	set, allocations, err := h.allocs.CurrentSet(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("current set error", slog.Int64("campaign", campaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if set == nil {
		http.NotFound(w, r)
		return
	}

	h.writeJSON(w, http.StatusOK, allocationSetResponse{
		SetID:       set.ID.String(),
		CampaignID:  set.CampaignID,
		Partial:     set.Partial,
		Shortfall:   set.Shortfall,
		CreatedAt:   set.CreatedAt,
		Allocations: toAllocationDTOs(allocations),
	})
}

type allocationSetResponse struct {
	SetID       string          `json:"set_id"`
	CampaignID  int64           `json:"campaign_id"`
	Partial     bool            `json:"partial"`
	Shortfall   int64           `json:"shortfall"`
	CreatedAt   time.Time       `json:"created_at"`
	Allocations []allocationDTO `json:"allocations"`
}
