package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"promo-ops/internal/core/port"
)

// Handler contains dependencies and routes. It is an inbound adapter for
// HTTP: operator actions (re-plan, settle, reverse), collaborator write
// paths (delivery samples, external signals) and the dashboard read side.
type Handler struct {
	planner  port.Planner
	ledger   port.Ledger
	scorer   port.Scorer
	allocs   port.AllocationRepository
	delivery port.DeliveryRepository
	signals  port.SignalRepository
	payments port.PaymentRepository
	stats    port.StatsRepository
	logger   *slog.Logger
	router   chi.Router
}

// Deps bundles the handler's dependencies.
type Deps struct {
	Planner  port.Planner
	Ledger   port.Ledger
	Scorer   port.Scorer
	Allocs   port.AllocationRepository
	Delivery port.DeliveryRepository
	Signals  port.SignalRepository
	Payments port.PaymentRepository
	Stats    port.StatsRepository
}

// NewHandler creates a handler with all routes configured on a new
// chi.Router.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	h := &Handler{
		planner:  deps.Planner,
		ledger:   deps.Ledger,
		scorer:   deps.Scorer,
		allocs:   deps.Allocs,
		delivery: deps.Delivery,
		signals:  deps.Signals,
		payments: deps.Payments,
		stats:    deps.Stats,
		logger:   logger,
	}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Post("/plan", h.handlePlan)
			r.Get("/allocations", h.handleAllocations)
			r.Get("/risk", h.handleRisk)
			r.Get("/payments", h.handlePayments)
			r.Put("/signals", h.handlePutSignals)
			r.Route("/vendors/{vendorID}", func(r chi.Router) {
				r.Post("/settle", h.handleSettle)
				r.Post("/payment-status", h.handlePaymentStatus)
				r.Post("/reverse", h.handleReverse)
			})
		})
		r.Post("/delivery-samples", h.handleDeliverySample)
		r.Get("/stats/overview", h.handleStatsOverview)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
