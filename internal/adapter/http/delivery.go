package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"promo-ops/internal/core/domain"
)

// handleDeliverySample is the scraping subsystem's write path. Samples are
// appended as observed; nothing is ever updated in place. Missing
// observed_at defaults to now.
func (h *Handler) handleDeliverySample(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CampaignID    int64               `json:"campaign_id"`
		VendorID      int64               `json:"vendor_id"`
		PlaylistID    *int64              `json:"playlist_id"`
		Window        domain.SampleWindow `json:"window"`
		ActualStreams int64               `json:"actual_streams"`
		ObservedAt    *time.Time          `json:"observed_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.CampaignID <= 0 || body.VendorID <= 0 || body.ActualStreams < 0 || !body.Window.Valid() {
		http.Error(w, "invalid sample", http.StatusBadRequest)
		return
	}

	observedAt := time.Now().UTC()
	if body.ObservedAt != nil {
		observedAt = body.ObservedAt.UTC()
	}

	sample, err := h.delivery.InsertSample(r.Context(), domain.DeliverySample{
		CampaignID:    body.CampaignID,
		VendorID:      body.VendorID,
		PlaylistID:    body.PlaylistID,
		Window:        body.Window,
		ActualStreams: body.ActualStreams,
		ObservedAt:    observedAt,
	})
	if err != nil {
		h.logger.Error("insert sample error", slog.Int64("campaign", body.CampaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, sample)
}
