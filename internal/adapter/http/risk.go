package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"promo-ops/internal/core/port"
)

// handleRisk scores the campaign on demand and returns the risk level with
// the open alerts, the payload behind the dashboard's risk cards.
func (h *Handler) handleRisk(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	summary, err := h.scorer.Score(r.Context(), campaignID)
	if errors.Is(err, port.ErrCampaignNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("score error", slog.Int64("campaign", campaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}
