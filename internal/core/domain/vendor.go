package domain

import "time"

// Vendor is a supply partner owning playlists with finite daily capacity.
// MaxDailyStreams caps the vendor's committed streams aggregated across all
// active campaigns; CostPer1kStreams is in integer currency minor units.
type Vendor struct {
	ID                     int64
	Name                   string
	MaxDailyStreams        int64
	MaxConcurrentCampaigns int
	CostPer1kStreams       int64
	IsActive               bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Playlist belongs to exactly one vendor and is the finest-grained
// allocation unit when the vendor runs more than one.
type Playlist struct {
	ID              int64
	VendorID        int64
	Name            string
	AvgDailyStreams int64
	Genres          []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
