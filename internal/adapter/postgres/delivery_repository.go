package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/domain"
)

// DeliveryRepository implements port.DeliveryRepository using pgxpool.
// Samples are append-only; newer observations supersede by observed_at.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository returns a new repository instance.
func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// InsertSample appends one delivery observation and returns it with its id.
func (r *DeliveryRepository) InsertSample(ctx context.Context, sample domain.DeliverySample) (*domain.DeliverySample, error) {
	err := r.pool.QueryRow(ctx, `
        INSERT INTO delivery_samples
            (campaign_id, vendor_id, playlist_id, sample_window, actual_streams, observed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		sample.CampaignID, sample.VendorID, sample.PlaylistID,
		sample.Window, sample.ActualStreams, sample.ObservedAt).Scan(&sample.ID)
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// LatestSamples returns the newest observation per (vendor, playlist) pair
// for the campaign and window.
func (r *DeliveryRepository) LatestSamples(ctx context.Context, campaignID int64, window domain.SampleWindow) ([]domain.DeliverySample, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT DISTINCT ON (vendor_id, COALESCE(playlist_id, 0))
            id, campaign_id, vendor_id, playlist_id, sample_window, actual_streams, observed_at
        FROM delivery_samples
        WHERE campaign_id = $1 AND sample_window = $2
        ORDER BY vendor_id, COALESCE(playlist_id, 0), observed_at DESC`, campaignID, window)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DeliverySample, error) {
		var s domain.DeliverySample
		err := row.Scan(&s.ID, &s.CampaignID, &s.VendorID, &s.PlaylistID, &s.Window, &s.ActualStreams, &s.ObservedAt)
		return s, err
	})
}
