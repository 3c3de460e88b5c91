package usecase

import (
	"context"
	"time"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// Risk thresholds. Delivery below half of the expected pace, an invoice more
// than two weeks past the terms window or a scrape gap beyond two days are
// critical; lesser variants of the same conditions warn.
const (
	riskUnderCritical = 0.5
	riskUnderWarning  = 0.7

	invoiceCriticalGrace = 14 * 24 * time.Hour

	disconnectWarning  = 24 * time.Hour
	disconnectCritical = 48 * time.Hour
)

var scoredAlertTypes = []domain.AlertType{
	domain.AlertUnderperformingDelivery,
	domain.AlertMissingAssets,
	domain.AlertReportOverdue,
	domain.AlertVendorApiDisconnected,
	domain.AlertInvoiceOverdue,
}

// Scorer aggregates delivery pace, payment age and external signals into a
// campaign risk level and maintains the open-alert set. It implements
// port.Scorer.
type Scorer struct {
	campaigns port.CampaignRepository
	reports   port.ReportRepository
	payments  port.PaymentRepository
	signals   port.SignalRepository
	alerts    port.AlertRepository

	// paymentTerms is the organization's payment-terms window; Unpaid records
	// older than it are overdue.
	paymentTerms time.Duration
	now          func() time.Time
}

// NewScorer creates a scorer with the organization's payment-terms window.
func NewScorer(campaigns port.CampaignRepository, reports port.ReportRepository,
	payments port.PaymentRepository, signals port.SignalRepository, alerts port.AlertRepository,
	paymentTerms time.Duration) *Scorer {
	return &Scorer{
		campaigns:    campaigns,
		reports:      reports,
		payments:     payments,
		signals:      signals,
		alerts:       alerts,
		paymentTerms: paymentTerms,
		now:          time.Now,
	}
}

// Score evaluates the campaign and reconciles the open-alert set: present
// conditions upsert their alert, cleared conditions resolve it. Missing
// collaborator signals count as unknown and contribute no risk weight.
func (s *Scorer) Score(ctx context.Context, campaignID int64) (*port.RiskSummary, error) {
	camp, err := s.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, port.ErrCampaignNotFound
	}

	now := s.now().UTC()
	conditions := make(map[domain.AlertType]domain.AlertSeverity)

	report, err := s.reports.LatestReport(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if report != nil {
		if worst, ok := report.WorstRatio(); ok {
			switch {
			case worst < riskUnderCritical:
				conditions[domain.AlertUnderperformingDelivery] = domain.SeverityCritical
			case worst < riskUnderWarning:
				conditions[domain.AlertUnderperformingDelivery] = domain.SeverityWarning
			}
		}
	}

	records, err := s.payments.ListPayments(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Status != domain.PaymentUnpaid {
			continue
		}
		overdueBy := now.Sub(record.CreatedAt) - s.paymentTerms
		switch {
		case overdueBy > invoiceCriticalGrace:
			conditions[domain.AlertInvoiceOverdue] = domain.SeverityCritical
		case overdueBy > 0:
			raiseAtLeast(conditions, domain.AlertInvoiceOverdue, domain.SeverityWarning)
		}
	}

	signals, err := s.signals.GetSignals(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if signals != nil {
		if signals.MissingAssets != nil && *signals.MissingAssets {
			conditions[domain.AlertMissingAssets] = domain.SeverityWarning
		}
		if signals.ReportOverdue != nil && *signals.ReportOverdue {
			conditions[domain.AlertReportOverdue] = domain.SeverityWarning
		}
		if signals.LastScrapeAt != nil {
			gap := now.Sub(*signals.LastScrapeAt)
			switch {
			case gap > disconnectCritical:
				conditions[domain.AlertVendorApiDisconnected] = domain.SeverityCritical
			case gap > disconnectWarning:
				conditions[domain.AlertVendorApiDisconnected] = domain.SeverityWarning
			}
		}
	}

	level := domain.RiskHealthy
	for _, alertType := range scoredAlertTypes {
		severity, active := conditions[alertType]
		if !active {
			if err = s.alerts.ResolveAlert(ctx, campaignID, alertType); err != nil {
				return nil, err
			}
			continue
		}
		if err = s.alerts.UpsertOpen(ctx, campaignID, alertType, severity); err != nil {
			return nil, err
		}
		switch severity {
		case domain.SeverityCritical:
			level = level.Max(domain.RiskCritical)
		case domain.SeverityWarning:
			level = level.Max(domain.RiskWarning)
		}
	}

	open, err := s.alerts.OpenAlerts(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &port.RiskSummary{CampaignID: campaignID, Level: level, Alerts: open}, nil
}

// raiseAtLeast records the severity unless an equal or higher one is present.
func raiseAtLeast(conditions map[domain.AlertType]domain.AlertSeverity, alertType domain.AlertType, severity domain.AlertSeverity) {
	if existing, ok := conditions[alertType]; ok && existing == domain.SeverityCritical {
		return
	}
	conditions[alertType] = severity
}
