package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// VendorRepository implements port.VendorRepository using pgxpool.
type VendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository returns a new repository instance.
func NewVendorRepository(pool *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{pool: pool}
}

const vendorColumns = `id, name, max_daily_streams, max_concurrent_campaigns, cost_per_1k_streams, is_active, created_at, updated_at`

// GetVendor returns a vendor by id, or nil when it does not exist.
func (r *VendorRepository) GetVendor(ctx context.Context, id int64) (*domain.Vendor, error) {
	var v domain.Vendor
	err := r.pool.QueryRow(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.MaxDailyStreams, &v.MaxConcurrentCampaigns, &v.CostPer1kStreams, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListActiveVendors returns active vendors together with the load committed
// to them by the current allocation sets of other active campaigns. The
// campaign being planned is excluded so a re-plan does not compete with its
// own commitments.
func (r *VendorRepository) ListActiveVendors(ctx context.Context, excludeCampaignID int64) ([]port.VendorCapacity, error) {
	query := `
        SELECT
            v.id, v.name, v.max_daily_streams, v.max_concurrent_campaigns,
            v.cost_per_1k_streams, v.is_active, v.created_at, v.updated_at,
            COALESCE(cm.committed_streams, 0),
            COALESCE(cm.active_campaigns, 0)
        FROM vendors v
        LEFT JOIN (
            SELECT a.vendor_id,
                SUM(a.allocated_streams) AS committed_streams,
                COUNT(DISTINCT s.campaign_id) AS active_campaigns
            FROM allocations a
            JOIN allocation_sets s ON s.id = a.set_id
            JOIN campaigns c ON c.id = s.campaign_id
            WHERE s.superseded_at IS NULL
              AND c.status = 'active'
              AND s.campaign_id <> $1
            GROUP BY a.vendor_id
        ) cm ON cm.vendor_id = v.id
        WHERE v.is_active
        ORDER BY v.cost_per_1k_streams, v.id`
	rows, err := r.pool.Query(ctx, query, excludeCampaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.VendorCapacity, error) {
		var vc port.VendorCapacity
		err := row.Scan(
			&vc.Vendor.ID,
			&vc.Vendor.Name,
			&vc.Vendor.MaxDailyStreams,
			&vc.Vendor.MaxConcurrentCampaigns,
			&vc.Vendor.CostPer1kStreams,
			&vc.Vendor.IsActive,
			&vc.Vendor.CreatedAt,
			&vc.Vendor.UpdatedAt,
			&vc.CommittedStreams,
			&vc.ActiveCampaigns,
		)
		return vc, err
	})
}

// ListPlaylists returns the vendor's playlists, largest first.
func (r *VendorRepository) ListPlaylists(ctx context.Context, vendorID int64) ([]domain.Playlist, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, vendor_id, name, avg_daily_streams, genres, created_at, updated_at
         FROM playlists WHERE vendor_id = $1
         ORDER BY avg_daily_streams DESC, id`, vendorID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Playlist, error) {
		var p domain.Playlist
		err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.AvgDailyStreams, &p.Genres, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
}
