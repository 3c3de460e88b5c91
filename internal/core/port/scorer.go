package port

import (
	"context"

	"promo-ops/internal/core/domain"
)

// Scorer combines delivery pace, payment age and external completeness
// signals into a per-campaign risk level. It runs after each reconciliation
// pass; alerts it raises are consumed by the dashboard and notification
// layers.
type Scorer interface {
	Score(ctx context.Context, campaignID int64) (*RiskSummary, error)
}

// RiskSummary is the scored health of one campaign together with its open
// alerts.
type RiskSummary struct {
	CampaignID int64            `json:"campaign_id"`
	Level      domain.RiskLevel `json:"level"`
	Alerts     []domain.Alert   `json:"alerts"`
}
