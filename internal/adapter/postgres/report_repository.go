package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/port"
)

// ReportRepository implements port.ReportRepository using pgxpool.
// Reports are append-only; the read side serves the latest row per campaign.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a new repository instance.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// SaveReport appends one reconciliation report. Entries are stored as a
// JSONB document; they are a derived view and never queried row-wise.
func (r *ReportRepository) SaveReport(ctx context.Context, report port.ReconciliationReport) error {
	entries, err := json.Marshal(report.Entries)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
        INSERT INTO reconciliation_reports (campaign_id, set_id, computed_at, entries)
        VALUES ($1, $2, $3, $4)`,
		report.CampaignID, report.SetID, report.ComputedAt, entries)
	return err
}

// LatestReport returns the newest report for the campaign, or nil when it
// was never reconciled.
func (r *ReportRepository) LatestReport(ctx context.Context, campaignID int64) (*port.ReconciliationReport, error) {
	var (
		report port.ReconciliationReport
		raw    []byte
	)
	err := r.pool.QueryRow(ctx, `
        SELECT campaign_id, set_id, computed_at, entries
        FROM reconciliation_reports
        WHERE campaign_id = $1
        ORDER BY computed_at DESC
        LIMIT 1`, campaignID).
		Scan(&report.CampaignID, &report.SetID, &report.ComputedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw, &report.Entries); err != nil {
		return nil, err
	}
	return &report, nil
}
