package port

import (
	"context"

	"promo-ops/internal/core/domain"
)

// Planner is the allocation planning port. Plan runs once at campaign
// creation and again only on explicit operator re-plan.
type Planner interface {
	// Plan distributes the campaign goal across the active vendor pool,
	// commits the resulting set atomically (superseding any prior set) and
	// returns the committed plan. A partial result is not an error.
	Plan(ctx context.Context, req PlanRequest) (*PlanOutcome, error)
}

// PlanRequest carries the campaign to plan and any operator overrides.
type PlanRequest struct {
	CampaignID int64
	Overrides  []VendorOverride
}

// VendorOverride caps a vendor's allocation manually. Overrides always win
// over computed bounds and are recorded with their reason.
type VendorOverride struct {
	VendorID   int64  `json:"vendor_id"`
	MaxStreams int64  `json:"max_streams"`
	Reason     string `json:"reason"`
}

// PlanningResult summarizes how a planning run bound out.
type PlanningResult struct {
	// Partial is set when vendor capacity or budget was insufficient to cover
	// the goal. Signal for manual intervention, not a failure.
	Partial bool `json:"partial"`
	// Shortfall is the uncovered remainder of the goal, zero unless Partial.
	Shortfall int64 `json:"shortfall"`
	// TotalStreams and TotalBudget sum the committed allocations.
	TotalStreams int64 `json:"total_streams"`
	TotalBudget  int64 `json:"total_budget"`
	// Vendors reports per-vendor amounts and the constraint that bound each.
	Vendors []VendorPlan `json:"vendors"`
}

// VendorPlan is one vendor's share of a planning result.
type VendorPlan struct {
	VendorID int64                  `json:"vendor_id"`
	Streams  int64                  `json:"streams"`
	Budget   int64                  `json:"budget"`
	BoundBy  domain.AllocationBound `json:"bound_by"`
}

// PlanOutcome is the committed product of one planning run.
type PlanOutcome struct {
	Set         domain.AllocationSet
	Allocations []domain.Allocation
	Result      PlanningResult
}
