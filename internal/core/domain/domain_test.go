package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCampaignStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to CampaignStatus
		ok       bool
	}{
		{CampaignDraft, CampaignActive, true},
		{CampaignDraft, CampaignCancelled, true},
		{CampaignDraft, CampaignCompleted, false},
		{CampaignActive, CampaignCompleted, true},
		{CampaignActive, CampaignCancelled, true},
		{CampaignActive, CampaignDraft, false},
		{CampaignCompleted, CampaignActive, false},
		{CampaignCancelled, CampaignDraft, false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPaymentStatusMachine(t *testing.T) {
	require.True(t, PaymentUnpaid.CanAdvanceTo(PaymentInvoiced))
	require.True(t, PaymentInvoiced.CanAdvanceTo(PaymentPaid))

	// no skipping, no forward via reverse, no backward via advance
	require.False(t, PaymentUnpaid.CanAdvanceTo(PaymentPaid))
	require.False(t, PaymentInvoiced.CanAdvanceTo(PaymentUnpaid))
	require.False(t, PaymentUnpaid.CanReverseTo(PaymentPaid))

	require.True(t, PaymentPaid.CanReverseTo(PaymentInvoiced))
	require.True(t, PaymentPaid.CanReverseTo(PaymentUnpaid))
	require.True(t, PaymentInvoiced.CanReverseTo(PaymentUnpaid))

	require.False(t, PaymentStatus("refunded").Valid())
	require.False(t, PaymentUnpaid.CanAdvanceTo(PaymentStatus("refunded")))
}

func TestRiskLevelMax(t *testing.T) {
	require.Equal(t, RiskHealthy, RiskHealthy.Max(RiskHealthy))
	require.Equal(t, RiskWarning, RiskHealthy.Max(RiskWarning))
	require.Equal(t, RiskCritical, RiskWarning.Max(RiskCritical))
	require.Equal(t, RiskCritical, RiskCritical.Max(RiskHealthy))
}

func TestSampleWindowValid(t *testing.T) {
	require.True(t, Window7d.Valid())
	require.True(t, Window28d.Valid())
	require.True(t, WindowLifetime.Valid())
	require.False(t, SampleWindow("90d").Valid())
}

func TestAllocationSetCurrent(t *testing.T) {
	set := AllocationSet{}
	require.True(t, set.Current())

	superseded := time.Now()
	set.SupersededAt = &superseded
	require.False(t, set.Current())
}

func TestCampaignElapsedDays(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := Campaign{StartDate: start, DurationDays: 30}

	require.Equal(t, 0, c.ElapsedDays(start.AddDate(0, 0, -2)))
	require.Equal(t, 0, c.ElapsedDays(start))
	require.Equal(t, 15, c.ElapsedDays(start.AddDate(0, 0, 15)))
	require.Equal(t, 30, c.ElapsedDays(start.AddDate(0, 0, 45)))
	require.Equal(t, start.AddDate(0, 0, 30), c.EndDate())
}
