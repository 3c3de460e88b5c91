package configs

import "time"

// Scheduler defines the intervals of the recurring engine jobs.
// ReconcileInterval doubles as the staleness unit: allocations without a
// delivery sample for two intervals are marked stale.
type Scheduler struct {
	// ReconcileInterval is the delivery reconciliation (and scoring) cadence.
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1h"`
	// SettleInterval is the payment settlement cadence.
	SettleInterval time.Duration `env:"SETTLE_INTERVAL" envDefault:"24h"`
	// CampaignTimeout bounds one campaign's processing within a pass; on
	// timeout the campaign is retried on the next cycle.
	CampaignTimeout time.Duration `env:"CAMPAIGN_TIMEOUT" envDefault:"2m"`
	// MaxConcurrent caps how many campaigns a pass processes in parallel.
	MaxConcurrent int `env:"MAX_CONCURRENT" envDefault:"8"`
}
