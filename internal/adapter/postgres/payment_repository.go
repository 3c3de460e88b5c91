package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// PaymentRepository implements port.PaymentRepository using pgxpool. One
// current record per (campaign, vendor); reversals are separate audit rows.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a new repository instance.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `campaign_id, vendor_id, amount_owed, status, created_at, updated_at`

func scanPayment(row pgx.Row) (domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	err := row.Scan(&p.CampaignID, &p.VendorID, &p.AmountOwed, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// UpsertAmount inserts the record as unpaid or refreshes amount_owed of the
// existing one. The stored status is never touched, which is what makes
// repeated settlement idempotent.
func (r *PaymentRepository) UpsertAmount(ctx context.Context, record domain.PaymentRecord) (*domain.PaymentRecord, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
        INSERT INTO payment_records (campaign_id, vendor_id, amount_owed, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (campaign_id, vendor_id)
        DO UPDATE SET amount_owed = EXCLUDED.amount_owed, updated_at = EXCLUDED.updated_at
        RETURNING `+paymentColumns,
		record.CampaignID, record.VendorID, record.AmountOwed, domain.PaymentUnpaid, record.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPayment returns the record for the pair, or nil when never settled.
func (r *PaymentRepository) GetPayment(ctx context.Context, campaignID, vendorID int64) (*domain.PaymentRecord, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE campaign_id = $1 AND vendor_id = $2`,
		campaignID, vendorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayments returns all records for a campaign.
func (r *PaymentRepository) ListPayments(ctx context.Context, campaignID int64) ([]domain.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE campaign_id = $1 ORDER BY vendor_id`,
		campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PaymentRecord, error) {
		return scanPayment(row)
	})
}

// UpdateStatus performs a compare-and-set on the status column. Zero rows
// affected means the stored status moved underneath the caller.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, campaignID, vendorID int64, from, to domain.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE payment_records SET status = $1, updated_at = now()
        WHERE campaign_id = $2 AND vendor_id = $3 AND status = $4`,
		to, campaignID, vendorID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %d/%d is no longer %s: %w", campaignID, vendorID, from, port.ErrInvalidTransition)
	}
	return nil
}

// InsertReversal appends one audit row for a backward status change.
func (r *PaymentRepository) InsertReversal(ctx context.Context, reversal domain.PaymentReversal) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO payment_reversals
            (campaign_id, vendor_id, from_status, to_status, reason, actor, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reversal.CampaignID, reversal.VendorID, reversal.FromStatus, reversal.ToStatus,
		reversal.Reason, reversal.Actor, reversal.CreatedAt)
	return err
}
