package port

import (
	"context"

	"promo-ops/internal/core/domain"
)

// Ledger derives vendor payables from reconciled delivery and drives the
// payment lifecycle. Settlement is idempotent: repeated calls with unchanged
// inputs upsert the one current record, they never duplicate or double-count.
type Ledger interface {
	// SettleVendor computes the payable for the pair under the configured
	// policy and upserts the current PaymentRecord. It returns
	// ErrNoAllocation when the pair holds no current allocation.
	SettleVendor(ctx context.Context, campaignID, vendorID int64) (*domain.PaymentRecord, error)

	// AdvanceStatus moves the record one step forward
	// (Unpaid -> Invoiced -> Paid). Skipping or regressing returns
	// ErrInvalidTransition.
	AdvanceStatus(ctx context.Context, campaignID, vendorID int64, to domain.PaymentStatus) (*domain.PaymentRecord, error)

	// Reverse moves the record backward as an audited exception. The reason
	// and acting operator are recorded; silent regressions do not exist.
	Reverse(ctx context.Context, req ReverseRequest) (*domain.PaymentRecord, error)
}

// ReverseRequest describes an operator-driven payment reversal.
type ReverseRequest struct {
	CampaignID int64
	VendorID   int64
	To         domain.PaymentStatus
	Reason     string
	Actor      string
}
