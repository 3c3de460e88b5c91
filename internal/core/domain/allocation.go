package domain

import (
	"time"

	"github.com/google/uuid"
)

// AllocationBound names the constraint that limited a vendor's allocation.
type AllocationBound string

const (
	BoundByGoal     AllocationBound = "goal"
	BoundByCapacity AllocationBound = "capacity"
	BoundByBudget   AllocationBound = "budget"
	BoundByOverride AllocationBound = "override"
)

// AllocationSet groups the allocations produced by one planning run.
// Sets are append-only: re-planning writes a new set and stamps
// SupersededAt on the previous one, never deletes it.
type AllocationSet struct {
	ID           uuid.UUID
	CampaignID   int64
	Partial      bool
	Shortfall    int64
	CreatedAt    time.Time
	SupersededAt *time.Time
}

// Current reports whether the set is the active one for its campaign.
func (s AllocationSet) Current() bool {
	return s.SupersededAt == nil
}

// Allocation is one vendor's (optionally one playlist's) committed share of
// a campaign goal. AllocatedBudget is in currency minor units.
// OverrideReason is set only when an operator override bound the amount.
type Allocation struct {
	ID               int64
	SetID            uuid.UUID
	CampaignID       int64
	VendorID         int64
	PlaylistID       *int64
	AllocatedStreams int64
	AllocatedBudget  int64
	BoundBy          AllocationBound
	OverrideReason   string
	CreatedAt        time.Time
}
