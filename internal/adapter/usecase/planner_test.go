package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

func newTestCampaign(id, goal, budget int64) domain.Campaign {
	return domain.Campaign{
		ID:           id,
		Name:         "test campaign",
		Goal:         goal,
		Budget:       budget,
		StartDate:    time.Now().AddDate(0, 0, -7),
		DurationDays: 30,
		Status:       domain.CampaignActive,
	}
}

// TestPlanTwoVendorsCheapestFirst covers the basic greedy pass: the cheaper
// vendor is exhausted before the more expensive one takes the remainder.
func TestPlanTwoVendorsCheapestFirst(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.vendors[2] = domain.Vendor{ID: 2, MaxDailyStreams: 80_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 800, IsActive: true}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)

	require.False(t, outcome.Result.Partial)
	require.Zero(t, outcome.Result.Shortfall)
	require.Equal(t, int64(100_000), outcome.Result.TotalStreams)
	require.Equal(t, int64(68_000), outcome.Result.TotalBudget)

	require.Len(t, outcome.Result.Vendors, 2)
	require.Equal(t, port.VendorPlan{VendorID: 1, Streams: 40_000, Budget: 20_000, BoundBy: domain.BoundByCapacity}, outcome.Result.Vendors[0])
	require.Equal(t, port.VendorPlan{VendorID: 2, Streams: 60_000, Budget: 48_000, BoundBy: domain.BoundByGoal}, outcome.Result.Vendors[1])

	set, rows, err := store.CurrentSet(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, set)
	require.Len(t, rows, 2)
}

// TestPlanPartialShortfall checks that insufficient capacity yields a partial
// set with the uncovered remainder recorded, not an error.
func TestPlanPartialShortfall(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 10_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.vendors[2] = domain.Vendor{ID: 2, MaxDailyStreams: 80_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 800, IsActive: false}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)

	require.True(t, outcome.Result.Partial)
	require.Equal(t, int64(90_000), outcome.Result.Shortfall)
	require.Equal(t, int64(10_000), outcome.Result.TotalStreams)
	require.True(t, outcome.Set.Partial)
	require.Equal(t, int64(90_000), outcome.Set.Shortfall)
}

// TestPlanBudgetBound verifies the budget cap: when proportional cost exceeds
// the remaining budget the allocation is clamped to the budget ceiling.
func TestPlanBudgetBound(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 10_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.vendors[2] = domain.Vendor{ID: 2, MaxDailyStreams: 80_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 800, IsActive: true}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)

	// 10_000 minor units buys exactly 20_000 streams at 500 per 1k; the
	// second vendor gets nothing.
	require.Len(t, outcome.Result.Vendors, 1)
	require.Equal(t, port.VendorPlan{VendorID: 1, Streams: 20_000, Budget: 10_000, BoundBy: domain.BoundByBudget}, outcome.Result.Vendors[0])
	require.True(t, outcome.Result.Partial)
	require.Equal(t, int64(80_000), outcome.Result.Shortfall)
	require.Equal(t, int64(10_000), outcome.Result.TotalBudget)
}

// TestPlanOverrideWins checks that an operator override replaces the computed
// upper bound and its reason lands on the committed rows.
func TestPlanOverrideWins(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.vendors[2] = domain.Vendor{ID: 2, MaxDailyStreams: 80_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 800, IsActive: true}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{
		CampaignID: 1,
		Overrides:  []port.VendorOverride{{VendorID: 1, MaxStreams: 5_000, Reason: "quality hold"}},
	})
	require.NoError(t, err)

	require.Equal(t, port.VendorPlan{VendorID: 1, Streams: 5_000, Budget: 2_500, BoundBy: domain.BoundByOverride}, outcome.Result.Vendors[0])
	require.Equal(t, port.VendorPlan{VendorID: 2, Streams: 80_000, Budget: 64_000, BoundBy: domain.BoundByCapacity}, outcome.Result.Vendors[1])
	require.True(t, outcome.Result.Partial)
	require.Equal(t, int64(15_000), outcome.Result.Shortfall)

	_, rows, err := store.CurrentSet(context.Background(), 1)
	require.NoError(t, err)
	for _, row := range rows {
		if row.VendorID == 1 {
			require.Equal(t, domain.BoundByOverride, row.BoundBy)
			require.Equal(t, "quality hold", row.OverrideReason)
		}
	}
}

// TestPlanSkipsVendorAtConcurrencyLimit verifies that a vendor already serving
// its maximum number of active campaigns is excluded from the pool.
func TestPlanSkipsVendorAtConcurrencyLimit(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 50_000, 100_000)
	store.campaigns[2] = newTestCampaign(2, 50_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 100_000, MaxConcurrentCampaigns: 1, CostPer1kStreams: 400, IsActive: true}
	store.vendors[2] = domain.Vendor{ID: 2, MaxDailyStreams: 80_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 800, IsActive: true}

	planner := NewPlanner(store, store, store)
	_, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 2})
	require.NoError(t, err)

	// vendor 1 now serves campaign 2, its only slot
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	require.Len(t, outcome.Result.Vendors, 1)
	require.Equal(t, int64(2), outcome.Result.Vendors[0].VendorID)
}

// TestPlanSupersedesPriorSet checks that re-planning stamps the previous set
// instead of deleting it.
func TestPlanSupersedesPriorSet(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 50_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 100_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}

	planner := NewPlanner(store, store, store)
	first, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	second, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	require.NotEqual(t, first.Set.ID, second.Set.ID)

	history := store.allSets(1)
	require.Len(t, history, 2)
	require.False(t, history[0].Current())
	require.True(t, history[1].Current())
	require.NotNil(t, history[0].SupersededAt)

	current, _, err := store.CurrentSet(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, second.Set.ID, current.ID)
}

// TestPlanSplitsAcrossPlaylists verifies the proportional playlist split with
// exact stream and budget sums.
func TestPlanSplitsAcrossPlaylists(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 20_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.playlists[1] = []domain.Playlist{
		{ID: 11, VendorID: 1, AvgDailyStreams: 30_000},
		{ID: 12, VendorID: 1, AvgDailyStreams: 10_000},
	}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)

	require.Len(t, outcome.Allocations, 2)
	byPlaylist := make(map[int64]domain.Allocation)
	var streams, budget int64
	for _, row := range outcome.Allocations {
		require.NotNil(t, row.PlaylistID)
		byPlaylist[*row.PlaylistID] = row
		streams += row.AllocatedStreams
		budget += row.AllocatedBudget
	}
	require.Equal(t, int64(15_000), byPlaylist[11].AllocatedStreams)
	require.Equal(t, int64(5_000), byPlaylist[12].AllocatedStreams)
	require.Equal(t, int64(20_000), streams)
	require.Equal(t, int64(10_000), budget)
}

// TestPlanSingleRowWithoutPlaylists checks that a vendor with at most one
// playlist gets one vendor-level allocation row.
func TestPlanSingleRowWithoutPlaylists(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 20_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	require.Len(t, outcome.Allocations, 1)
	require.Nil(t, outcome.Allocations[0].PlaylistID)
	require.Equal(t, int64(20_000), outcome.Allocations[0].AllocatedStreams)
}

// TestPlanRetriesOnCapacityConflict simulates a lost capacity race on commit
// and checks that the retry clamps the losing vendor to the re-checked value.
func TestPlanRetriesOnCapacityConflict(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.vendors[2] = domain.Vendor{ID: 2, MaxDailyStreams: 80_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 800, IsActive: true}
	store.queuedCommitErrs = []error{&port.CapacityConflictError{VendorID: 1, Available: 10_000}}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)

	require.Equal(t, port.VendorPlan{VendorID: 1, Streams: 10_000, Budget: 5_000, BoundBy: domain.BoundByCapacity}, outcome.Result.Vendors[0])
	require.Equal(t, port.VendorPlan{VendorID: 2, Streams: 80_000, Budget: 64_000, BoundBy: domain.BoundByCapacity}, outcome.Result.Vendors[1])
	require.True(t, outcome.Result.Partial)
	require.Equal(t, int64(10_000), outcome.Result.Shortfall)
}

// TestPlanDegradesToPartialWhenRetriesExhaust checks that persistent commit
// conflicts end in a committed partial set at the contended vendor's
// re-checked availability, not in an error.
func TestPlanDegradesToPartialWhenRetriesExhaust(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	for i := 0; i < 4; i++ {
		store.queuedCommitErrs = append(store.queuedCommitErrs, &port.CapacityConflictError{VendorID: 1, Available: 10_000})
	}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	require.True(t, outcome.Result.Partial)
	require.Equal(t, int64(90_000), outcome.Result.Shortfall)
	require.Equal(t, port.VendorPlan{VendorID: 1, Streams: 10_000, Budget: 5_000, BoundBy: domain.BoundByCapacity}, outcome.Result.Vendors[0])

	// the degraded set really is stored
	set, rows, err := store.CurrentSet(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, set.Partial)
	require.Len(t, rows, 1)
	require.Equal(t, int64(10_000), rows[0].AllocatedStreams)
}

// TestPlanDegradesToEmptySet covers the floor of the degrade path: when every
// vendor is contended away the committed set is empty and the whole goal is
// the shortfall.
func TestPlanDegradesToEmptySet(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	for i := 0; i < 4; i++ {
		store.queuedCommitErrs = append(store.queuedCommitErrs, &port.CapacityConflictError{VendorID: 1, Available: 0})
	}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	require.True(t, outcome.Result.Partial)
	require.Equal(t, int64(100_000), outcome.Result.Shortfall)
	require.Zero(t, outcome.Result.TotalStreams)
	require.Empty(t, outcome.Allocations)
}

// TestPlanUncommittableConflict checks the remaining hard-error case: a
// vendor that conflicts again after being dropped entirely.
func TestPlanUncommittableConflict(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 100_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	for i := 0; i < 5; i++ {
		store.queuedCommitErrs = append(store.queuedCommitErrs, &port.CapacityConflictError{VendorID: 1, Available: 0})
	}

	planner := NewPlanner(store, store, store)
	_, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.ErrorIs(t, err, port.ErrCapacityConflict)
}

// TestPlanRetriesCommitSerializationAbort checks that a commit-time
// serialization failure, surfaced as the bare conflict sentinel, is retried
// against fresh reads without clamping anything.
func TestPlanRetriesCommitSerializationAbort(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 40_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}
	store.queuedCommitErrs = []error{fmt.Errorf("plan commit: %w", port.ErrCapacityConflict)}

	planner := NewPlanner(store, store, store)
	outcome, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.NoError(t, err)
	require.False(t, outcome.Result.Partial)
	require.Equal(t, int64(40_000), outcome.Result.TotalStreams)
}

// TestPlanRejectsTerminalCampaign verifies that completed and cancelled
// campaigns cannot be planned.
func TestPlanRejectsTerminalCampaign(t *testing.T) {
	store := newMemStore()
	camp := newTestCampaign(1, 100_000, 100_000)
	camp.Status = domain.CampaignCompleted
	store.campaigns[1] = camp

	planner := NewPlanner(store, store, store)
	_, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 1})
	require.ErrorIs(t, err, port.ErrCampaignNotPlannable)
}

func TestPlanUnknownCampaign(t *testing.T) {
	store := newMemStore()
	planner := NewPlanner(store, store, store)
	_, err := planner.Plan(context.Background(), port.PlanRequest{CampaignID: 404})
	require.ErrorIs(t, err, port.ErrCampaignNotFound)
}

// TestConcurrentPlansNeverOvercommit runs two campaigns against one vendor in
// parallel; the commit-time re-check must keep the vendor's committed total
// within its daily cap, with the losing plan clamped instead of failed.
func TestConcurrentPlansNeverOvercommit(t *testing.T) {
	store := newMemStore()
	store.campaigns[1] = newTestCampaign(1, 30_000, 100_000)
	store.campaigns[2] = newTestCampaign(2, 30_000, 100_000)
	store.vendors[1] = domain.Vendor{ID: 1, MaxDailyStreams: 40_000, MaxConcurrentCampaigns: 5, CostPer1kStreams: 500, IsActive: true}

	planner := NewPlanner(store, store, store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{1, 2} {
		wg.Add(1)
		go func(i int, campaignID int64) {
			defer wg.Done()
			_, errs[i] = planner.Plan(context.Background(), port.PlanRequest{CampaignID: campaignID})
		}(i, id)
	}
	wg.Wait()
	require.NoError(t, errors.Join(errs...))

	var committed int64
	for _, campaignID := range []int64{1, 2} {
		_, rows, err := store.CurrentSet(context.Background(), campaignID)
		require.NoError(t, err)
		for _, row := range rows {
			committed += row.AllocatedStreams
		}
	}
	require.Equal(t, int64(40_000), committed)
}
