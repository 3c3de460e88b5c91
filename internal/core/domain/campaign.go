package domain

import "time"

// CampaignStatus is the closed set of campaign lifecycle states. Statuses
// were free-text in the data this system replaces, which is how mixed-case
// variants ended up in the same column; all writes now go through this type.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Valid reports whether s is a known status value.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignCompleted, CampaignCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Completed and Cancelled are terminal.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	switch s {
	case CampaignDraft:
		return next == CampaignActive || next == CampaignCancelled
	case CampaignActive:
		return next == CampaignCompleted || next == CampaignCancelled
	default:
		return false
	}
}

// Campaign represents a promotion order. Goal counts target streams over the
// whole campaign run; Budget is stored in integer currency minor units.
type Campaign struct {
	ID           int64
	Name         string
	Goal         int64
	Budget       int64
	StartDate    time.Time
	DurationDays int
	Status       CampaignStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EndDate returns the exclusive end of the campaign run.
func (c Campaign) EndDate() time.Time {
	return c.StartDate.AddDate(0, 0, c.DurationDays)
}

// ElapsedDays returns whole days elapsed since the start, clamped to
// [0, DurationDays].
func (c Campaign) ElapsedDays(now time.Time) int {
	if now.Before(c.StartDate) {
		return 0
	}
	days := int(now.Sub(c.StartDate).Hours() / 24)
	if days > c.DurationDays {
		return c.DurationDays
	}
	return days
}
