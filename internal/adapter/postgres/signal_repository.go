package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/domain"
)

// SignalRepository implements port.SignalRepository using pgxpool. One row
// per campaign; NULL columns mean the collaborator has not reported.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository returns a new repository instance.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// GetSignals returns the campaign's collaborator signals, or nil when none
// were ever reported.
func (r *SignalRepository) GetSignals(ctx context.Context, campaignID int64) (*domain.ExternalSignals, error) {
	var s domain.ExternalSignals
	err := r.pool.QueryRow(ctx, `
        SELECT campaign_id, missing_assets, report_overdue, last_scrape_at, updated_at
        FROM external_signals WHERE campaign_id = $1`, campaignID).
		Scan(&s.CampaignID, &s.MissingAssets, &s.ReportOverdue, &s.LastScrapeAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSignals upserts the campaign's signal row. Fields left nil by the
// caller overwrite to NULL; collaborators always send their full view.
func (r *SignalRepository) PutSignals(ctx context.Context, signals domain.ExternalSignals) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO external_signals (campaign_id, missing_assets, report_overdue, last_scrape_at, updated_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (campaign_id)
        DO UPDATE SET missing_assets = EXCLUDED.missing_assets,
                      report_overdue = EXCLUDED.report_overdue,
                      last_scrape_at = EXCLUDED.last_scrape_at,
                      updated_at = now()`,
		signals.CampaignID, signals.MissingAssets, signals.ReportOverdue, signals.LastScrapeAt)
	return err
}
