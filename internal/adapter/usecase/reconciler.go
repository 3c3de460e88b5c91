package usecase

import (
	"context"
	"fmt"
	"time"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// Pace classification thresholds. Ratios outside [0.7, 1.3] leave the
// on-track band.
const (
	paceUnderThreshold = 0.7
	paceOverThreshold  = 1.3
)

// Reconciler compares the latest delivery samples against the campaign's
// current allocation set and records the derived pace view. It implements
// port.Reconciler.
type Reconciler struct {
	campaigns  port.CampaignRepository
	allocs     port.AllocationRepository
	deliveries port.DeliveryRepository
	reports    port.ReportRepository

	// cycle is the scheduled reconciliation interval; allocations without a
	// sample for two cycles are marked stale.
	cycle time.Duration
	now   func() time.Time
}

// NewReconciler creates a reconciler. cycle must match the scheduler's
// reconciliation interval for stale detection to line up.
func NewReconciler(campaigns port.CampaignRepository, allocs port.AllocationRepository,
	deliveries port.DeliveryRepository, reports port.ReportRepository, cycle time.Duration) *Reconciler {
	return &Reconciler{
		campaigns:  campaigns,
		allocs:     allocs,
		deliveries: deliveries,
		reports:    reports,
		cycle:      cycle,
		now:        time.Now,
	}
}

type sampleKey struct {
	vendorID   int64
	playlistID int64
}

func keyFor(vendorID int64, playlistID *int64) sampleKey {
	k := sampleKey{vendorID: vendorID}
	if playlistID != nil {
		k.playlistID = *playlistID
	}
	return k
}

// Reconcile computes pace figures for every allocation in the current set.
// One vendor's missing data marks only that allocation stale; it never fails
// the pass for the rest.
func (r *Reconciler) Reconcile(ctx context.Context, campaignID int64) (*port.ReconciliationReport, error) {
	camp, err := r.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, port.ErrCampaignNotFound
	}

	set, rows, err := r.allocs.CurrentSet(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("campaign %d has never been planned: %w", campaignID, port.ErrNoAllocation)
	}

	samples, err := r.deliveries.LatestSamples(ctx, campaignID, domain.WindowLifetime)
	if err != nil {
		return nil, err
	}
	latest := make(map[sampleKey]domain.DeliverySample, len(samples))
	for _, s := range samples {
		latest[keyFor(s.VendorID, s.PlaylistID)] = s
	}

	now := r.now().UTC()
	staleBefore := now.Add(-2 * r.cycle)
	elapsed := int64(camp.ElapsedDays(now))
	duration := int64(camp.DurationDays)

	entries := make([]port.AllocationPace, 0, len(rows))
	var delivered int64
	for _, alloc := range rows {
		entry := port.AllocationPace{
			VendorID:         alloc.VendorID,
			PlaylistID:       alloc.PlaylistID,
			AllocatedStreams: alloc.AllocatedStreams,
		}

		sample, ok := latest[keyFor(alloc.VendorID, alloc.PlaylistID)]
		if !ok || sample.ObservedAt.Before(staleBefore) {
			entry.Class = port.PaceStale
			if ok {
				entry.ActualStreams = sample.ActualStreams
				delivered += sample.ActualStreams
			}
			entries = append(entries, entry)
			continue
		}

		expected := int64(0)
		if duration > 0 {
			expected = alloc.AllocatedStreams * elapsed / duration
		}
		if expected > alloc.AllocatedStreams {
			expected = alloc.AllocatedStreams
		}
		denom := expected
		if denom < 1 {
			denom = 1
		}
		ratio := float64(sample.ActualStreams) / float64(denom)

		entry.PaceExpected = expected
		entry.ActualStreams = sample.ActualStreams
		entry.PaceRatio = ratio
		switch {
		case ratio < paceUnderThreshold:
			entry.Class = port.PaceUnderperforming
		case ratio > paceOverThreshold:
			entry.Class = port.PaceOverperforming
		default:
			entry.Class = port.PaceOnTrack
		}
		delivered += sample.ActualStreams
		entries = append(entries, entry)
	}

	report := port.ReconciliationReport{
		CampaignID: campaignID,
		SetID:      set.ID.String(),
		ComputedAt: now,
		Entries:    entries,
	}
	if err = r.reports.SaveReport(ctx, report); err != nil {
		return nil, err
	}

	// Close out campaigns that ran past their end date with the goal met.
	if camp.Status == domain.CampaignActive && !now.Before(camp.EndDate()) && delivered >= camp.Goal {
		if camp.Status.CanTransitionTo(domain.CampaignCompleted) {
			if err = r.campaigns.UpdateCampaignStatus(ctx, campaignID, domain.CampaignCompleted); err != nil {
				return nil, err
			}
		}
	}

	return &report, nil
}
