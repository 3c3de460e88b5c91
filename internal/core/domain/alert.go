package domain

import "time"

// AlertType is the closed set of operational risk signals.
type AlertType string

const (
	AlertUnderperformingDelivery AlertType = "underperforming_delivery"
	AlertMissingAssets           AlertType = "missing_assets"
	AlertReportOverdue           AlertType = "report_overdue"
	AlertVendorApiDisconnected   AlertType = "vendor_api_disconnected"
	AlertInvoiceOverdue          AlertType = "invoice_overdue"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// RiskLevel is the aggregate health classification of a campaign.
type RiskLevel string

const (
	RiskHealthy  RiskLevel = "healthy"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

// Max returns the more severe of l and other.
func (l RiskLevel) Max(other RiskLevel) RiskLevel {
	if l == RiskCritical || other == RiskCritical {
		return RiskCritical
	}
	if l == RiskWarning || other == RiskWarning {
		return RiskWarning
	}
	return RiskHealthy
}

// Alert is a risk signal raised by the scorer. At most one open alert exists
// per (campaign, type); clearing a condition resolves the alert in place,
// preserving the audit trail.
type Alert struct {
	ID         int64
	CampaignID int64
	Type       AlertType
	Severity   AlertSeverity
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// ExternalSignals are the per-campaign booleans and timestamps supplied by
// outside collaborators (asset tracker, connectivity monitor). Nil fields
// mean the collaborator has not reported; unknown signals carry no risk
// weight.
type ExternalSignals struct {
	CampaignID    int64
	MissingAssets *bool
	ReportOverdue *bool
	LastScrapeAt  *time.Time
	UpdatedAt     time.Time
}
