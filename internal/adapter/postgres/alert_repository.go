package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/domain"
)

// AlertRepository implements port.AlertRepository using pgxpool. A partial
// unique index keeps at most one open alert per (campaign, type); resolved
// alerts stay behind as the audit trail.
type AlertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository returns a new repository instance.
func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

// UpsertOpen creates an open alert for the condition or refreshes the
// severity of the one already open.
func (r *AlertRepository) UpsertOpen(ctx context.Context, campaignID int64, alertType domain.AlertType, severity domain.AlertSeverity) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO alerts (campaign_id, alert_type, severity, created_at, updated_at)
        VALUES ($1, $2, $3, now(), now())
        ON CONFLICT (campaign_id, alert_type) WHERE resolved_at IS NULL
        DO UPDATE SET severity = EXCLUDED.severity, updated_at = now()`,
		campaignID, alertType, severity)
	return err
}

// ResolveAlert stamps resolved_at on the open alert for the condition, if
// one exists. Resolved alerts are never deleted.
func (r *AlertRepository) ResolveAlert(ctx context.Context, campaignID int64, alertType domain.AlertType) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE alerts SET resolved_at = now(), updated_at = now()
        WHERE campaign_id = $1 AND alert_type = $2 AND resolved_at IS NULL`,
		campaignID, alertType)
	return err
}

// OpenAlerts returns the campaign's unresolved alerts.
func (r *AlertRepository) OpenAlerts(ctx context.Context, campaignID int64) ([]domain.Alert, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, campaign_id, alert_type, severity, created_at, updated_at, resolved_at
        FROM alerts
        WHERE campaign_id = $1 AND resolved_at IS NULL
        ORDER BY created_at, id`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Alert, error) {
		var a domain.Alert
		err := row.Scan(&a.ID, &a.CampaignID, &a.Type, &a.Severity, &a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt)
		return a, err
	})
}
