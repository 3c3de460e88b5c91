package domain

import "time"

// PaymentStatus is the vendor payable lifecycle. Forward transitions are
// monotonic and may not skip a state; the only way back is an audited
// reversal.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentInvoiced PaymentStatus = "invoiced"
	PaymentPaid     PaymentStatus = "paid"
)

func (s PaymentStatus) rank() int {
	switch s {
	case PaymentUnpaid:
		return 0
	case PaymentInvoiced:
		return 1
	case PaymentPaid:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status value.
func (s PaymentStatus) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether next is the immediate forward transition.
func (s PaymentStatus) CanAdvanceTo(next PaymentStatus) bool {
	return s.Valid() && next.Valid() && next.rank() == s.rank()+1
}

// CanReverseTo reports whether next is an earlier state, reachable only via
// the audited Reverse operation.
func (s PaymentStatus) CanReverseTo(next PaymentStatus) bool {
	return s.Valid() && next.Valid() && next.rank() < s.rank()
}

// PaymentPolicy selects the settlement basis configured per organization.
type PaymentPolicy string

const (
	// PayOnAllocation pays for the committed streams regardless of delivery.
	PayOnAllocation PaymentPolicy = "allocation"
	// PayOnDelivery pays for min(actual, allocated) streams.
	PayOnDelivery PaymentPolicy = "delivery"
)

// Valid reports whether p is a known policy.
func (p PaymentPolicy) Valid() bool {
	return p == PayOnAllocation || p == PayOnDelivery
}

// PaymentRecord is the single current payable per (campaign, vendor).
// AmountOwed is derived and held in currency minor units.
type PaymentRecord struct {
	CampaignID int64
	VendorID   int64
	AmountOwed int64
	Status     PaymentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentReversal is the audit record written for every backward status
// change. Reversals are never deleted.
type PaymentReversal struct {
	ID         int64
	CampaignID int64
	VendorID   int64
	FromStatus PaymentStatus
	ToStatus   PaymentStatus
	Reason     string
	Actor      string
	CreatedAt  time.Time
}
