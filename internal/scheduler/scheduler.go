package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"promo-ops/internal/config/configs"
	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// Scheduler runs the recurring engine jobs: reconcile-and-score on one
// interval, settlement on another. Each pass iterates the active campaigns
// with bounded concurrency; campaigns are independent, so one campaign's
// failure or timeout only costs that campaign its cycle.
type Scheduler struct {
	campaigns  port.CampaignRepository
	allocs     port.AllocationRepository
	reconciler port.Reconciler
	ledger     port.Ledger
	scorer     port.Scorer

	cfg    configs.Scheduler
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler over the engine use cases.
func New(campaigns port.CampaignRepository, allocs port.AllocationRepository,
	reconciler port.Reconciler, ledger port.Ledger, scorer port.Scorer,
	cfg configs.Scheduler, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		campaigns:  campaigns,
		allocs:     allocs,
		reconciler: reconciler,
		ledger:     ledger,
		scorer:     scorer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start launches the job loops. Each loop runs once immediately and then on
// its interval until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{}, 2)
	go s.loop(ctx, "reconcile", s.cfg.ReconcileInterval, s.reconcileAndScore)
	go s.loop(ctx, "settle", s.cfg.SettleInterval, s.settle)
	s.logger.Info("scheduler started",
		slog.Duration("reconcile_interval", s.cfg.ReconcileInterval),
		slog.Duration("settle_interval", s.cfg.SettleInterval))
}

// Stop cancels the loops and waits for both to drain.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	<-s.done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job string, interval time.Duration, fn func(context.Context, domain.Campaign) error) {
	defer func() { s.done <- struct{}{} }()

	s.runOnce(ctx, job, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job, fn)
		}
	}
}

// runOnce fans one job out over the active campaigns. Errors are logged with
// the campaign identifier and never abort the batch.
func (s *Scheduler) runOnce(ctx context.Context, job string, fn func(context.Context, domain.Campaign) error) {
	campaigns, err := s.campaigns.ListActiveCampaigns(ctx)
	if err != nil {
		s.logger.Error("list active campaigns", slog.String("job", job), slog.Any("error", err))
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, campaign := range campaigns {
		campaign := campaign
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(ctx, s.cfg.CampaignTimeout)
			defer cancel()
			if err := fn(runCtx, campaign); err != nil {
				// never-planned campaigns simply wait for their first plan
				if errors.Is(err, port.ErrNoAllocation) {
					return nil
				}
				s.logger.Error("campaign job failed",
					slog.String("job", job),
					slog.Int64("campaign", campaign.ID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// reconcileAndScore runs the delivery reconciliation for one campaign and
// scores it afterwards, the scorer consuming the report the pass just wrote.
func (s *Scheduler) reconcileAndScore(ctx context.Context, campaign domain.Campaign) error {
	if _, err := s.reconciler.Reconcile(ctx, campaign.ID); err != nil {
		return err
	}
	_, err := s.scorer.Score(ctx, campaign.ID)
	return err
}

// settle refreshes the payable of every vendor in the campaign's current set.
func (s *Scheduler) settle(ctx context.Context, campaign domain.Campaign) error {
	set, allocations, err := s.allocs.CurrentSet(ctx, campaign.ID)
	if err != nil {
		return err
	}
	if set == nil {
		return nil
	}
	seen := make(map[int64]bool)
	for _, allocation := range allocations {
		if seen[allocation.VendorID] {
			continue
		}
		seen[allocation.VendorID] = true
		if _, err := s.ledger.SettleVendor(ctx, campaign.ID, allocation.VendorID); err != nil {
			s.logger.Error("settle vendor failed",
				slog.Int64("campaign", campaign.ID),
				slog.Int64("vendor", allocation.VendorID),
				slog.Any("error", err))
		}
	}
	return nil
}
