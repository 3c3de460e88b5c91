package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// Ledger derives vendor payables under the organization's payment policy and
// drives the payment state machine. It implements port.Ledger.
type Ledger struct {
	vendors    port.VendorRepository
	allocs     port.AllocationRepository
	deliveries port.DeliveryRepository
	payments   port.PaymentRepository

	policy domain.PaymentPolicy
	now    func() time.Time
}

// NewLedger creates a ledger for the given policy.
func NewLedger(vendors port.VendorRepository, allocs port.AllocationRepository,
	deliveries port.DeliveryRepository, payments port.PaymentRepository, policy domain.PaymentPolicy) *Ledger {
	return &Ledger{
		vendors:    vendors,
		allocs:     allocs,
		deliveries: deliveries,
		payments:   payments,
		policy:     policy,
		now:        time.Now,
	}
}

// SettleVendor computes amount_owed for the pair and upserts its single
// current PaymentRecord. Settling a pair with no current allocation is an
// error, not a silently-created zero record. Repeated calls with unchanged
// inputs are idempotent.
func (l *Ledger) SettleVendor(ctx context.Context, campaignID, vendorID int64) (*domain.PaymentRecord, error) {
	rows, err := l.allocs.CurrentAllocationsForVendor(ctx, campaignID, vendorID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("settle campaign %d vendor %d: %w", campaignID, vendorID, port.ErrNoAllocation)
	}

	vendor, err := l.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, port.ErrVendorNotFound
	}

	var allocated int64
	for _, row := range rows {
		allocated += row.AllocatedStreams
	}

	basis := allocated
	if l.policy == domain.PayOnDelivery {
		actual, err := l.deliveredStreams(ctx, campaignID, vendorID)
		if err != nil {
			return nil, err
		}
		if actual < basis {
			basis = actual
		}
	}

	now := l.now().UTC()
	record := domain.PaymentRecord{
		CampaignID: campaignID,
		VendorID:   vendorID,
		AmountOwed: basis * vendor.CostPer1kStreams / 1000,
		Status:     domain.PaymentUnpaid,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return l.payments.UpsertAmount(ctx, record)
}

func (l *Ledger) deliveredStreams(ctx context.Context, campaignID, vendorID int64) (int64, error) {
	samples, err := l.deliveries.LatestSamples(ctx, campaignID, domain.WindowLifetime)
	if err != nil {
		return 0, err
	}
	var actual int64
	for _, s := range samples {
		if s.VendorID == vendorID {
			actual += s.ActualStreams
		}
	}
	return actual, nil
}

// AdvanceStatus moves the record exactly one step forward. The store-level
// compare-and-set keeps concurrent advances from skipping states.
func (l *Ledger) AdvanceStatus(ctx context.Context, campaignID, vendorID int64, to domain.PaymentStatus) (*domain.PaymentRecord, error) {
	record, err := l.payments.GetPayment(ctx, campaignID, vendorID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, port.ErrPaymentNotFound
	}
	if !record.Status.CanAdvanceTo(to) {
		return nil, fmt.Errorf("%s -> %s: %w", record.Status, to, port.ErrInvalidTransition)
	}
	if err = l.payments.UpdateStatus(ctx, campaignID, vendorID, record.Status, to); err != nil {
		return nil, err
	}
	record.Status = to
	record.UpdatedAt = l.now().UTC()
	return record, nil
}

// Reverse moves the record backward as an audited exception. The reversal
// row is the log entry; there is no silent path back.
func (l *Ledger) Reverse(ctx context.Context, req port.ReverseRequest) (*domain.PaymentRecord, error) {
	if req.Reason == "" {
		return nil, errors.New("payment reversal requires a reason")
	}
	record, err := l.payments.GetPayment(ctx, req.CampaignID, req.VendorID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, port.ErrPaymentNotFound
	}
	if !record.Status.CanReverseTo(req.To) {
		return nil, fmt.Errorf("%s -> %s: %w", record.Status, req.To, port.ErrInvalidTransition)
	}
	if err = l.payments.UpdateStatus(ctx, req.CampaignID, req.VendorID, record.Status, req.To); err != nil {
		return nil, err
	}
	reversal := domain.PaymentReversal{
		CampaignID: req.CampaignID,
		VendorID:   req.VendorID,
		FromStatus: record.Status,
		ToStatus:   req.To,
		Reason:     req.Reason,
		Actor:      req.Actor,
		CreatedAt:  l.now().UTC(),
	}
	if err = l.payments.InsertReversal(ctx, reversal); err != nil {
		return nil, err
	}
	record.Status = req.To
	record.UpdatedAt = reversal.CreatedAt
	return record, nil
}
