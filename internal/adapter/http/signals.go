package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"promo-ops/internal/core/domain"
)

// handlePutSignals is the write path for the asset tracker and the vendor
// connectivity monitor. Collaborators send their full view; omitted fields
// store as NULL and score as unknown.
func (h *Handler) handlePutSignals(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		MissingAssets *bool      `json:"missing_assets"`
		ReportOverdue *bool      `json:"report_overdue"`
		LastScrapeAt  *time.Time `json:"last_scrape_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.signals.PutSignals(r.Context(), domain.ExternalSignals{
		CampaignID:    campaignID,
		MissingAssets: body.MissingAssets,
		ReportOverdue: body.ReportOverdue,
		LastScrapeAt:  body.LastScrapeAt,
	})
	if err != nil {
		h.logger.Error("put signals error", slog.Int64("campaign", campaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
