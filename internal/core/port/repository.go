package port

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promo-ops/internal/core/domain"
)

var (
	// ErrCampaignNotFound is returned when the referenced campaign does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrVendorNotFound is returned when the referenced vendor does not exist.
	ErrVendorNotFound = errors.New("vendor not found")
	// ErrNoAllocation is returned when settling a (campaign, vendor) pair that
	// has no current allocation. The ledger must not create a record in that case.
	ErrNoAllocation = errors.New("no allocation for campaign/vendor pair")
	// ErrPaymentNotFound is returned when advancing or reversing a payable
	// that was never settled.
	ErrPaymentNotFound = errors.New("payment record not found")
	// ErrInvalidTransition is returned for payment status changes the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid payment status transition")
	// ErrCapacityConflict is returned when a plan commit loses a capacity race
	// against a concurrent plan for another campaign. Retryable.
	ErrCapacityConflict = errors.New("vendor capacity conflict")
	// ErrCampaignNotPlannable is returned when planning a completed or
	// cancelled campaign.
	ErrCampaignNotPlannable = errors.New("campaign is not plannable")
)

// CapacityConflictError carries the re-checked availability of the vendor
// that lost the race, so the planner can clamp and retry.
type CapacityConflictError struct {
	VendorID  int64
	Available int64
}

func (e *CapacityConflictError) Error() string {
	return fmt.Sprintf("vendor %d capacity conflict, %d streams available", e.VendorID, e.Available)
}

func (e *CapacityConflictError) Unwrap() error { return ErrCapacityConflict }

// VendorCapacity is a vendor together with its committed load across other
// active campaigns, as read at planning time.
type VendorCapacity struct {
	Vendor domain.Vendor
	// CommittedStreams sums current-set allocated streams of other active
	// campaigns against this vendor.
	CommittedStreams int64
	// ActiveCampaigns counts other active campaigns holding a current
	// allocation against this vendor.
	ActiveCampaigns int
}

// CampaignRepository is the campaign read/lifecycle port.
type CampaignRepository interface {
	// GetCampaign returns nil, nil when the campaign does not exist.
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	// ListActiveCampaigns returns campaigns in the Active status.
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// UpdateCampaignStatus persists a lifecycle transition.
	UpdateCampaignStatus(ctx context.Context, id int64, status domain.CampaignStatus) error
}

// VendorRepository is the vendor registry port.
type VendorRepository interface {
	// GetVendor returns nil, nil when the vendor does not exist.
	GetVendor(ctx context.Context, id int64) (*domain.Vendor, error)
	// ListActiveVendors returns active vendors with their committed load,
	// excluding commitments held by excludeCampaignID (a campaign's own
	// current set must not count against its re-plan).
	ListActiveVendors(ctx context.Context, excludeCampaignID int64) ([]VendorCapacity, error)
	// ListPlaylists returns the vendor's playlists.
	ListPlaylists(ctx context.Context, vendorID int64) ([]domain.Playlist, error)
}

// AllocationRepository is the allocation history port. Sets are append-only;
// CommitSet supersedes the campaign's current set and writes the new one in a
// single transaction, re-checking vendor capacity under lock. It returns a
// *CapacityConflictError when the re-check fails.
type AllocationRepository interface {
	CommitSet(ctx context.Context, set domain.AllocationSet, allocations []domain.Allocation) error
	// CurrentSet returns nil, nil, nil when the campaign has never been planned.
	CurrentSet(ctx context.Context, campaignID int64) (*domain.AllocationSet, []domain.Allocation, error)
	// CurrentAllocationsForVendor returns the current-set rows for one vendor.
	CurrentAllocationsForVendor(ctx context.Context, campaignID, vendorID int64) ([]domain.Allocation, error)
}

// DeliveryRepository is the delivery observation port. Samples are
// append-only.
type DeliveryRepository interface {
	InsertSample(ctx context.Context, sample domain.DeliverySample) (*domain.DeliverySample, error)
	// LatestSamples returns the newest sample per (vendor, playlist) pair for
	// the campaign and window.
	LatestSamples(ctx context.Context, campaignID int64, window domain.SampleWindow) ([]domain.DeliverySample, error)
}

// ReportRepository stores reconciliation reports append-only.
type ReportRepository interface {
	SaveReport(ctx context.Context, report ReconciliationReport) error
	// LatestReport returns nil, nil when the campaign was never reconciled.
	LatestReport(ctx context.Context, campaignID int64) (*ReconciliationReport, error)
}

// PaymentRepository is the payment ledger persistence port.
type PaymentRepository interface {
	// UpsertAmount inserts the record as Unpaid or updates AmountOwed of the
	// existing one, preserving its status. Idempotent.
	UpsertAmount(ctx context.Context, record domain.PaymentRecord) (*domain.PaymentRecord, error)
	// GetPayment returns nil, nil when the pair was never settled.
	GetPayment(ctx context.Context, campaignID, vendorID int64) (*domain.PaymentRecord, error)
	ListPayments(ctx context.Context, campaignID int64) ([]domain.PaymentRecord, error)
	// UpdateStatus performs a compare-and-set from -> to and returns
	// ErrInvalidTransition when the stored status is no longer from.
	UpdateStatus(ctx context.Context, campaignID, vendorID int64, from, to domain.PaymentStatus) error
	InsertReversal(ctx context.Context, reversal domain.PaymentReversal) error
}

// AlertRepository is the alert persistence port. At most one open alert per
// (campaign, type).
type AlertRepository interface {
	// UpsertOpen creates an open alert or refreshes the severity of the
	// existing open one.
	UpsertOpen(ctx context.Context, campaignID int64, alertType domain.AlertType, severity domain.AlertSeverity) error
	// ResolveAlert stamps ResolvedAt on the open alert, if any.
	ResolveAlert(ctx context.Context, campaignID int64, alertType domain.AlertType) error
	OpenAlerts(ctx context.Context, campaignID int64) ([]domain.Alert, error)
}

// SignalRepository stores external collaborator signals per campaign.
type SignalRepository interface {
	// GetSignals returns nil, nil when no collaborator has reported yet.
	GetSignals(ctx context.Context, campaignID int64) (*domain.ExternalSignals, error)
	PutSignals(ctx context.Context, signals domain.ExternalSignals) error
}

// StatsRepository aggregates allocation, delivery and payable totals for the
// dashboard overview.
type StatsRepository interface {
	GetStats(ctx context.Context, req StatsReq) (*StatsResp, error)
}

// StatsReq bounds the overview period and optionally narrows to one campaign.
type StatsReq struct {
	From       time.Time
	To         time.Time
	CampaignID *int64
}

// StatsResp contains aggregated totals. Streams are counts, AmountOwed is in
// currency minor units.
type StatsResp struct {
	AllocatedStreams int64 `json:"allocated_streams"`
	DeliveredStreams int64 `json:"delivered_streams"`
	AmountOwed       int64 `json:"amount_owed"`
}
