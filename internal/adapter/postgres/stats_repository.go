package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/port"
)

// StatsRepository implements port.StatsRepository using pgxpool. It serves
// the dashboard's allocated/delivered/owed overview.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a new repository instance.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// GetStats returns aggregated totals for the period. Allocated streams come
// from current sets created in the window, delivered streams from the newest
// lifetime sample per pair observed up to the window end, owed amounts from
// the current payment records.
func (r *StatsRepository) GetStats(ctx context.Context, req port.StatsReq) (*port.StatsResp, error) {
	args := []interface{}{req.From, req.To}
	whereCampaign := ""
	if req.CampaignID != nil {
		whereCampaign = "AND s.campaign_id = $3"
		args = append(args, *req.CampaignID)
	}

	var resp port.StatsResp

	allocQuery := fmt.Sprintf(`
        SELECT COALESCE(SUM(a.allocated_streams), 0)
        FROM allocations a
        JOIN allocation_sets s ON s.id = a.set_id
        WHERE s.superseded_at IS NULL
          AND s.created_at >= $1 AND s.created_at <= $2 %s`, whereCampaign)
	if err := r.pool.QueryRow(ctx, allocQuery, args...).Scan(&resp.AllocatedStreams); err != nil {
		return nil, err
	}

	deliveredQuery := fmt.Sprintf(`
        SELECT COALESCE(SUM(actual_streams), 0) FROM (
            SELECT DISTINCT ON (s.campaign_id, s.vendor_id, COALESCE(s.playlist_id, 0))
                s.actual_streams
            FROM delivery_samples s
            WHERE s.sample_window = 'lifetime'
              AND s.observed_at >= $1 AND s.observed_at <= $2 %s
            ORDER BY s.campaign_id, s.vendor_id, COALESCE(s.playlist_id, 0), s.observed_at DESC
        ) latest`, whereCampaign)
	if err := r.pool.QueryRow(ctx, deliveredQuery, args...).Scan(&resp.DeliveredStreams); err != nil {
		return nil, err
	}

	owedArgs := []interface{}{}
	whereOwed := ""
	if req.CampaignID != nil {
		whereOwed = "WHERE campaign_id = $1"
		owedArgs = append(owedArgs, *req.CampaignID)
	}
	owedQuery := fmt.Sprintf(`SELECT COALESCE(SUM(amount_owed), 0) FROM payment_records %s`, whereOwed)
	if err := r.pool.QueryRow(ctx, owedQuery, owedArgs...).Scan(&resp.AmountOwed); err != nil {
		return nil, err
	}

	return &resp, nil
}
