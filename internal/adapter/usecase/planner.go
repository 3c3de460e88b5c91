package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// Planner distributes a campaign's stream goal across the active vendor pool
// with a cost-minimizing greedy pass. It implements port.Planner.
type Planner struct {
	campaigns port.CampaignRepository
	vendors   port.VendorRepository
	allocs    port.AllocationRepository

	// maxAttempts bounds the optimistic retry loop on capacity conflicts.
	maxAttempts int
	now         func() time.Time
}

// NewPlanner creates a planner with the provided repositories.
func NewPlanner(campaigns port.CampaignRepository, vendors port.VendorRepository, allocs port.AllocationRepository) *Planner {
	return &Planner{
		campaigns:   campaigns,
		vendors:     vendors,
		allocs:      allocs,
		maxAttempts: 4,
		now:         time.Now,
	}
}

// Plan builds and commits a new allocation set for the campaign. The commit
// re-checks vendor capacity under lock; when a concurrent plan for another
// campaign wins the race, the losing vendor's availability is clamped to the
// re-checked value and the whole pass retries against a fresh pool. Once
// maxAttempts are spent the plan degrades instead of failing: vendors that
// keep conflicting are dropped and the remaining capacity is committed as a
// partial set.
func (p *Planner) Plan(ctx context.Context, req port.PlanRequest) (*port.PlanOutcome, error) {
	camp, err := p.campaigns.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, port.ErrCampaignNotFound
	}
	switch camp.Status {
	case domain.CampaignDraft, domain.CampaignActive:
	default:
		return nil, fmt.Errorf("campaign %d is %s: %w", camp.ID, camp.Status, port.ErrCampaignNotPlannable)
	}

	overrides := make(map[int64]port.VendorOverride, len(req.Overrides))
	for _, ov := range req.Overrides {
		overrides[ov.VendorID] = ov
	}

	// clamps holds per-vendor availability learned from lost capacity races.
	clamps := make(map[int64]int64)
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		outcome, err := p.planOnce(ctx, camp, overrides, clamps)
		var conflict *port.CapacityConflictError
		switch {
		case errors.As(err, &conflict):
			available := conflict.Available
			if available < 0 {
				available = 0
			}
			clamps[conflict.VendorID] = available
			continue
		case errors.Is(err, port.ErrCapacityConflict):
			// commit-time serialization abort, nothing was written; retry
			// against fresh reads
			continue
		case err != nil:
			return nil, err
		}
		return outcome, nil
	}

	// Retries exhausted: commit whatever the uncontended vendors can carry as
	// a partial set. Every further conflict drops its vendor from the pool,
	// so the loop terminates; a vendor conflicting after it was dropped means
	// the store cannot take any set at all.
	aborts := 0
	for {
		outcome, err := p.planOnce(ctx, camp, overrides, clamps)
		var conflict *port.CapacityConflictError
		switch {
		case errors.As(err, &conflict):
			if prior, ok := clamps[conflict.VendorID]; ok && prior == 0 {
				return nil, fmt.Errorf("planning campaign %d: %w", camp.ID, port.ErrCapacityConflict)
			}
			clamps[conflict.VendorID] = 0
			continue
		case errors.Is(err, port.ErrCapacityConflict):
			aborts++
			if aborts >= p.maxAttempts {
				return nil, fmt.Errorf("planning campaign %d: %w", camp.ID, port.ErrCapacityConflict)
			}
			continue
		case err != nil:
			return nil, err
		}
		return outcome, nil
	}
}

// planOnce runs one list-build-commit pass.
func (p *Planner) planOnce(ctx context.Context, camp *domain.Campaign,
	overrides map[int64]port.VendorOverride, clamps map[int64]int64) (*port.PlanOutcome, error) {

	pool, err := p.vendors.ListActiveVendors(ctx, camp.ID)
	if err != nil {
		return nil, err
	}
	outcome, err := p.buildPlan(ctx, camp, pool, overrides, clamps)
	if err != nil {
		return nil, err
	}
	if err = p.allocs.CommitSet(ctx, outcome.Set, outcome.Allocations); err != nil {
		return nil, err
	}
	return outcome, nil
}

// buildPlan runs the greedy pass: vendors cheapest-first, each takes
// min(available, remaining goal, upper bound), where an operator override
// replaces the upper bound. Proportional budget is charged per vendor; when
// it would exceed the campaign budget the allocation is capped at the budget
// ceiling instead and reported as budget-bound.
func (p *Planner) buildPlan(ctx context.Context, camp *domain.Campaign, pool []port.VendorCapacity,
	overrides map[int64]port.VendorOverride, clamps map[int64]int64) (*port.PlanOutcome, error) {

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Vendor.CostPer1kStreams != pool[j].Vendor.CostPer1kStreams {
			return pool[i].Vendor.CostPer1kStreams < pool[j].Vendor.CostPer1kStreams
		}
		return pool[i].Vendor.ID < pool[j].Vendor.ID
	})

	var (
		setID           = uuid.New()
		createdAt       = p.now().UTC()
		remaining       = camp.Goal
		remainingBudget = camp.Budget
		allocations     []domain.Allocation
		vendorPlans     []port.VendorPlan
	)

	for _, vc := range pool {
		if remaining == 0 {
			break
		}
		vendor := vc.Vendor
		if vc.ActiveCampaigns >= vendor.MaxConcurrentCampaigns {
			continue
		}

		available := vendor.MaxDailyStreams - vc.CommittedStreams
		if clamp, ok := clamps[vendor.ID]; ok && clamp < available {
			available = clamp
		}
		if available <= 0 {
			continue
		}

		take := available
		bound := domain.BoundByCapacity
		if remaining < take {
			take = remaining
			bound = domain.BoundByGoal
		}
		reason := ""
		if ov, ok := overrides[vendor.ID]; ok && ov.MaxStreams < take {
			take = ov.MaxStreams
			bound = domain.BoundByOverride
			reason = ov.Reason
		}
		if take <= 0 {
			continue
		}

		cost := take * vendor.CostPer1kStreams / 1000
		if cost > remainingBudget {
			if vendor.CostPer1kStreams <= 0 {
				// unreachable with positive cost, keep the invariant explicit
				continue
			}
			take = remainingBudget * 1000 / vendor.CostPer1kStreams
			cost = take * vendor.CostPer1kStreams / 1000
			bound = domain.BoundByBudget
			reason = ""
			if take <= 0 {
				// cheapest vendors come first, nothing further can fit
				break
			}
		}

		playlists, err := p.vendors.ListPlaylists(ctx, vendor.ID)
		if err != nil {
			return nil, err
		}
		rows := splitAllocation(setID, camp.ID, vendor.ID, playlists, take, cost, bound, reason, createdAt)
		allocations = append(allocations, rows...)
		vendorPlans = append(vendorPlans, port.VendorPlan{
			VendorID: vendor.ID,
			Streams:  take,
			Budget:   cost,
			BoundBy:  bound,
		})
		remaining -= take
		remainingBudget -= cost
	}

	set := domain.AllocationSet{
		ID:         setID,
		CampaignID: camp.ID,
		Partial:    remaining > 0,
		Shortfall:  remaining,
		CreatedAt:  createdAt,
	}
	result := port.PlanningResult{
		Partial:      remaining > 0,
		Shortfall:    remaining,
		TotalStreams: camp.Goal - remaining,
		TotalBudget:  camp.Budget - remainingBudget,
		Vendors:      vendorPlans,
	}
	return &port.PlanOutcome{Set: set, Allocations: allocations, Result: result}, nil
}

// splitAllocation turns one vendor's take into allocation rows. With two or
// more playlists the take is split proportionally to historical playlist
// capacity; otherwise a single vendor-level row is written. Stream and budget
// sums are kept exact by assigning remainders to the leading rows.
func splitAllocation(setID uuid.UUID, campaignID, vendorID int64, playlists []domain.Playlist,
	streams, budget int64, bound domain.AllocationBound, reason string, createdAt time.Time) []domain.Allocation {

	base := domain.Allocation{
		SetID:          setID,
		CampaignID:     campaignID,
		VendorID:       vendorID,
		BoundBy:        bound,
		OverrideReason: reason,
		CreatedAt:      createdAt,
	}

	if len(playlists) < 2 {
		row := base
		row.AllocatedStreams = streams
		row.AllocatedBudget = budget
		return []domain.Allocation{row}
	}

	var totalWeight int64
	for _, pl := range playlists {
		totalWeight += pl.AvgDailyStreams
	}

	rows := make([]domain.Allocation, len(playlists))
	var streamsUsed, budgetUsed int64
	for i, pl := range playlists {
		share := streams / int64(len(playlists))
		if totalWeight > 0 {
			share = streams * pl.AvgDailyStreams / totalWeight
		}
		row := base
		id := pl.ID
		row.PlaylistID = &id
		row.AllocatedStreams = share
		streamsUsed += share
		rows[i] = row
	}
	// distribute the rounding leftover one stream at a time
	for i := 0; streamsUsed < streams; i = (i + 1) % len(rows) {
		rows[i].AllocatedStreams++
		streamsUsed++
	}
	for i := range rows {
		var b int64
		if streams > 0 {
			b = budget * rows[i].AllocatedStreams / streams
		}
		rows[i].AllocatedBudget = b
		budgetUsed += b
	}
	if n := budget - budgetUsed; n > 0 {
		rows[0].AllocatedBudget += n
	}
	return rows
}
