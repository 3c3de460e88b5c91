package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// handlePayments lists the campaign's payment records for the invoice-health
// view and the vendor portal.
func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "campaignID")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	records, err := h.payments.ListPayments(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("list payments error", slog.Int64("campaign", campaignID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

// handleSettle computes and upserts the vendor payable. Settling a pair with
// no current allocation is HTTP 409, not a silently-created zero record.
func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	campaignID, okC := pathID(r, "campaignID")
	vendorID, okV := pathID(r, "vendorID")
	if !okC || !okV {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	record, err := h.ledger.SettleVendor(r.Context(), campaignID, vendorID)
	switch {
	case errors.Is(err, port.ErrNoAllocation):
		http.Error(w, "no allocation for campaign/vendor pair", http.StatusConflict)
		return
	case errors.Is(err, port.ErrVendorNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Error("settle error",
			slog.Int64("campaign", campaignID), slog.Int64("vendor", vendorID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// handlePaymentStatus advances the payable one step forward
// (unpaid -> invoiced -> paid). Skips and regressions are HTTP 409.
func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, okC := pathID(r, "campaignID")
	vendorID, okV := pathID(r, "vendorID")
	if !okC || !okV {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var body struct {
		Status domain.PaymentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Status.Valid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	record, err := h.ledger.AdvanceStatus(r.Context(), campaignID, vendorID, body.Status)
	switch {
	case errors.Is(err, port.ErrPaymentNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, port.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("payment status error",
			slog.Int64("campaign", campaignID), slog.Int64("vendor", vendorID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// handleReverse moves the payable backward as an audited exception. The
// reason and acting operator are mandatory and end up in the reversal log.
func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	campaignID, okC := pathID(r, "campaignID")
	vendorID, okV := pathID(r, "vendorID")
	if !okC || !okV {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var body struct {
		To     domain.PaymentStatus `json:"to"`
		Reason string               `json:"reason"`
		Actor  string               `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.To.Valid() {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}

	record, err := h.ledger.Reverse(r.Context(), port.ReverseRequest{
		CampaignID: campaignID,
		VendorID:   vendorID,
		To:         body.To,
		Reason:     body.Reason,
		Actor:      body.Actor,
	})
	switch {
	case errors.Is(err, port.ErrPaymentNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, port.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("reverse error",
			slog.Int64("campaign", campaignID), slog.Int64("vendor", vendorID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}
