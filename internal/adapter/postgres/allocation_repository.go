package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// AllocationRepository implements port.AllocationRepository using pgxpool.
// Allocation history is append-only: committing a set supersedes the prior
// one, nothing is ever deleted.
type AllocationRepository struct {
	pool *pgxpool.Pool
}

// NewAllocationRepository returns a new repository instance.
func NewAllocationRepository(pool *pgxpool.Pool) *AllocationRepository {
	return &AllocationRepository{pool: pool}
}

// CommitSet writes the set and its allocations in one serializable
// transaction. A per-campaign advisory lock serializes planning against
// reconciliation for the same campaign; vendor rows are locked in id order
// and their committed capacity re-checked, so two campaigns racing for the
// same vendor cannot overcommit it. A failed re-check returns a
// *port.CapacityConflictError for the planner's retry loop. The commit is
// checked explicitly: under Serializable the abort can surface at COMMIT,
// after which nothing was written, so it maps to the retryable conflict
// sentinel rather than a success.
func (r *AllocationRepository) CommitSet(ctx context.Context, set domain.AllocationSet, allocations []domain.Allocation) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	// no-op once the transaction is committed
	defer func() { _ = tx.Rollback(ctx) }()

	// single-writer discipline per campaign
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, set.CampaignID); err != nil {
		return err
	}

	// aggregate the new commitment per vendor
	perVendor := make(map[int64]int64)
	vendorIDs := make([]int64, 0, len(allocations))
	for _, a := range allocations {
		if _, seen := perVendor[a.VendorID]; !seen {
			vendorIDs = append(vendorIDs, a.VendorID)
		}
		perVendor[a.VendorID] += a.AllocatedStreams
	}

	// lock vendor rows in a stable order and re-check capacity
	rows, err := tx.Query(ctx, `
        SELECT id, max_daily_streams, max_concurrent_campaigns
        FROM vendors WHERE id = ANY($1)
        ORDER BY id
        FOR UPDATE`, vendorIDs)
	if err != nil {
		return err
	}
	type vendorLimit struct {
		ID            int64
		MaxDaily      int64
		MaxConcurrent int
	}
	limits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vendorLimit, error) {
		var v vendorLimit
		err := row.Scan(&v.ID, &v.MaxDaily, &v.MaxConcurrent)
		return v, err
	})
	if err != nil {
		return err
	}

	for _, limit := range limits {
		var committed int64
		var campaigns int
		err = tx.QueryRow(ctx, `
            SELECT COALESCE(SUM(a.allocated_streams), 0), COUNT(DISTINCT s.campaign_id)
            FROM allocations a
            JOIN allocation_sets s ON s.id = a.set_id
            JOIN campaigns c ON c.id = s.campaign_id
            WHERE a.vendor_id = $1
              AND s.superseded_at IS NULL
              AND c.status = 'active'
              AND s.campaign_id <> $2`, limit.ID, set.CampaignID).Scan(&committed, &campaigns)
		if err != nil {
			return err
		}
		if committed+perVendor[limit.ID] > limit.MaxDaily {
			return &port.CapacityConflictError{VendorID: limit.ID, Available: limit.MaxDaily - committed}
		}
		if campaigns >= limit.MaxConcurrent {
			return &port.CapacityConflictError{VendorID: limit.ID, Available: 0}
		}
	}

	// supersede the prior set, keep it for audit
	if _, err = tx.Exec(ctx, `
        UPDATE allocation_sets SET superseded_at = now()
        WHERE campaign_id = $1 AND superseded_at IS NULL`, set.CampaignID); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
        INSERT INTO allocation_sets (id, campaign_id, partial, shortfall, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		set.ID, set.CampaignID, set.Partial, set.Shortfall, set.CreatedAt); err != nil {
		return err
	}

	for _, a := range allocations {
		if _, err = tx.Exec(ctx, `
            INSERT INTO allocations
                (set_id, campaign_id, vendor_id, playlist_id, allocated_streams,
                 allocated_budget, bound_by, override_reason, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.SetID, a.CampaignID, a.VendorID, a.PlaylistID, a.AllocatedStreams,
			a.AllocatedBudget, a.BoundBy, a.OverrideReason, a.CreatedAt); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		// 40001 serialization_failure: the SSI re-check lost against a
		// concurrent commit, transaction rolled back
		if errors.As(err, &pgErr) && pgErr.Code == "40001" {
			return fmt.Errorf("plan commit for campaign %d: %w", set.CampaignID, port.ErrCapacityConflict)
		}
		return err
	}
	return nil
}

const allocationColumns = `id, set_id, campaign_id, vendor_id, playlist_id, allocated_streams, allocated_budget, bound_by, override_reason, created_at`

func scanAllocation(row pgx.CollectableRow) (domain.Allocation, error) {
	var a domain.Allocation
	err := row.Scan(&a.ID, &a.SetID, &a.CampaignID, &a.VendorID, &a.PlaylistID,
		&a.AllocatedStreams, &a.AllocatedBudget, &a.BoundBy, &a.OverrideReason, &a.CreatedAt)
	return a, err
}

// CurrentSet returns the campaign's non-superseded set and its allocations,
// or nils when the campaign was never planned.
func (r *AllocationRepository) CurrentSet(ctx context.Context, campaignID int64) (*domain.AllocationSet, []domain.Allocation, error) {
	var set domain.AllocationSet
	err := r.pool.QueryRow(ctx, `
        SELECT id, campaign_id, partial, shortfall, created_at, superseded_at
        FROM allocation_sets
        WHERE campaign_id = $1 AND superseded_at IS NULL`, campaignID).
		Scan(&set.ID, &set.CampaignID, &set.Partial, &set.Shortfall, &set.CreatedAt, &set.SupersededAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE set_id = $1 ORDER BY id`, set.ID)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := pgx.CollectRows(rows, scanAllocation)
	if err != nil {
		return nil, nil, err
	}
	return &set, allocations, nil
}

// CurrentAllocationsForVendor returns the current-set rows for one vendor.
func (r *AllocationRepository) CurrentAllocationsForVendor(ctx context.Context, campaignID, vendorID int64) ([]domain.Allocation, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT a.id, a.set_id, a.campaign_id, a.vendor_id, a.playlist_id,
            a.allocated_streams, a.allocated_budget, a.bound_by, a.override_reason, a.created_at
        FROM allocations a
        JOIN allocation_sets s ON s.id = a.set_id
        WHERE s.campaign_id = $1 AND s.superseded_at IS NULL AND a.vendor_id = $2
        ORDER BY a.id`, campaignID, vendorID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAllocation)
}
