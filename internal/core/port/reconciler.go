package port

import (
	"context"
	"time"
)

// Reconciler compares delivered streams against the current allocation set.
// It runs on a fixed schedule for every active campaign.
type Reconciler interface {
	Reconcile(ctx context.Context, campaignID int64) (*ReconciliationReport, error)
}

// PaceClass classifies one allocation's delivery pace.
type PaceClass string

const (
	PaceOnTrack         PaceClass = "on_track"
	PaceUnderperforming PaceClass = "underperforming"
	PaceOverperforming  PaceClass = "overperforming"
	// PaceStale marks allocations with no fresh sample for two or more
	// reconciliation cycles; they are excluded from pace math until data
	// arrives.
	PaceStale PaceClass = "stale"
)

// AllocationPace is the derived pace view of one allocation. Allocations are
// never mutated by reconciliation; this record is the classification.
type AllocationPace struct {
	VendorID         int64     `json:"vendor_id"`
	PlaylistID       *int64    `json:"playlist_id,omitempty"`
	AllocatedStreams int64     `json:"allocated_streams"`
	PaceExpected     int64     `json:"pace_expected"`
	ActualStreams    int64     `json:"actual_streams"`
	PaceRatio        float64   `json:"pace_ratio"`
	Class            PaceClass `json:"class"`
}

// ReconciliationReport is the outcome of one reconciliation pass.
type ReconciliationReport struct {
	CampaignID int64            `json:"campaign_id"`
	SetID      string           `json:"set_id"`
	ComputedAt time.Time        `json:"computed_at"`
	Entries    []AllocationPace `json:"entries"`
}

// WorstRatio returns the lowest pace ratio among non-stale entries and
// whether any such entry exists.
func (r ReconciliationReport) WorstRatio() (float64, bool) {
	worst := 0.0
	found := false
	for _, e := range r.Entries {
		if e.Class == PaceStale {
			continue
		}
		if !found || e.PaceRatio < worst {
			worst = e.PaceRatio
			found = true
		}
	}
	return worst, found
}
