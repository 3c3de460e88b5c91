package domain

import "time"

// SampleWindow is the aggregation window of a delivery observation.
type SampleWindow string

const (
	Window7d       SampleWindow = "7d"
	Window28d      SampleWindow = "28d"
	WindowLifetime SampleWindow = "lifetime"
)

// Valid reports whether w is a known window.
func (w SampleWindow) Valid() bool {
	switch w {
	case Window7d, Window28d, WindowLifetime:
		return true
	default:
		return false
	}
}

// DeliverySample is a point-in-time delivery observation written by the
// scraping subsystem. Samples are append-only; newer ObservedAt supersedes,
// nothing is ever updated in place.
type DeliverySample struct {
	ID            int64
	CampaignID    int64
	VendorID      int64
	PlaylistID    *int64
	Window        SampleWindow
	ActualStreams int64
	ObservedAt    time.Time
}
