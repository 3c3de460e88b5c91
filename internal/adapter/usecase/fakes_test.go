package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"promo-ops/internal/core/domain"
	"promo-ops/internal/core/port"
)

// memStore is an in-memory implementation of the repository ports used by
// the use-case tests. It enforces the same vendor capacity re-check the
// postgres adapter performs on commit, so planner retry behaviour can be
// exercised without a database.
type memStore struct {
	mu sync.Mutex

	campaigns map[int64]domain.Campaign
	vendors   map[int64]domain.Vendor
	playlists map[int64][]domain.Playlist

	sets   []domain.AllocationSet
	allocs map[uuid.UUID][]domain.Allocation

	samples   []domain.DeliverySample
	reports   []port.ReconciliationReport
	payments  map[[2]int64]domain.PaymentRecord
	reversals []domain.PaymentReversal
	alerts    []domain.Alert
	signals   map[int64]domain.ExternalSignals

	// queuedCommitErrs are returned by CommitSet before any real work, one
	// per call, to simulate lost capacity races.
	queuedCommitErrs []error

	nextAlertID int64
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: make(map[int64]domain.Campaign),
		vendors:   make(map[int64]domain.Vendor),
		playlists: make(map[int64][]domain.Playlist),
		allocs:    make(map[uuid.UUID][]domain.Allocation),
		payments:  make(map[[2]int64]domain.PaymentRecord),
		signals:   make(map[int64]domain.ExternalSignals),
	}
}

// --- CampaignRepository ---

func (m *memStore) GetCampaign(_ context.Context, id int64) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) ListActiveCampaigns(context.Context) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == domain.CampaignActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateCampaignStatus(_ context.Context, id int64, status domain.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return port.ErrCampaignNotFound
	}
	c.Status = status
	m.campaigns[id] = c
	return nil
}

// --- VendorRepository ---

func (m *memStore) GetVendor(_ context.Context, id int64) (*domain.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vendors[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *memStore) ListActiveVendors(_ context.Context, excludeCampaignID int64) ([]port.VendorCapacity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []port.VendorCapacity
	for _, v := range m.vendors {
		if !v.IsActive {
			continue
		}
		committed, campaigns := m.committedLocked(v.ID, excludeCampaignID)
		out = append(out, port.VendorCapacity{Vendor: v, CommittedStreams: committed, ActiveCampaigns: campaigns})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor.ID < out[j].Vendor.ID })
	return out, nil
}

func (m *memStore) ListPlaylists(_ context.Context, vendorID int64) ([]domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Playlist(nil), m.playlists[vendorID]...), nil
}

// committedLocked mirrors the SQL capacity aggregation: current-set streams
// of active campaigns other than the excluded one.
func (m *memStore) committedLocked(vendorID, excludeCampaignID int64) (int64, int) {
	var committed int64
	campaigns := make(map[int64]bool)
	for _, set := range m.sets {
		if !set.Current() || set.CampaignID == excludeCampaignID {
			continue
		}
		if c, ok := m.campaigns[set.CampaignID]; !ok || c.Status != domain.CampaignActive {
			continue
		}
		for _, a := range m.allocs[set.ID] {
			if a.VendorID == vendorID {
				committed += a.AllocatedStreams
				campaigns[set.CampaignID] = true
			}
		}
	}
	return committed, len(campaigns)
}

// --- AllocationRepository ---

func (m *memStore) CommitSet(_ context.Context, set domain.AllocationSet, allocations []domain.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queuedCommitErrs) > 0 {
		err := m.queuedCommitErrs[0]
		m.queuedCommitErrs = m.queuedCommitErrs[1:]
		return err
	}

	perVendor := make(map[int64]int64)
	for _, a := range allocations {
		perVendor[a.VendorID] += a.AllocatedStreams
	}
	for vendorID, add := range perVendor {
		v, ok := m.vendors[vendorID]
		if !ok {
			return port.ErrVendorNotFound
		}
		committed, campaigns := m.committedLocked(vendorID, set.CampaignID)
		if committed+add > v.MaxDailyStreams {
			return &port.CapacityConflictError{VendorID: vendorID, Available: v.MaxDailyStreams - committed}
		}
		if campaigns >= v.MaxConcurrentCampaigns {
			return &port.CapacityConflictError{VendorID: vendorID, Available: 0}
		}
	}

	now := time.Now()
	for i := range m.sets {
		if m.sets[i].CampaignID == set.CampaignID && m.sets[i].Current() {
			t := now
			m.sets[i].SupersededAt = &t
		}
	}
	m.sets = append(m.sets, set)
	m.allocs[set.ID] = append([]domain.Allocation(nil), allocations...)
	return nil
}

func (m *memStore) CurrentSet(_ context.Context, campaignID int64) (*domain.AllocationSet, []domain.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sets {
		if m.sets[i].CampaignID == campaignID && m.sets[i].Current() {
			set := m.sets[i]
			return &set, append([]domain.Allocation(nil), m.allocs[set.ID]...), nil
		}
	}
	return nil, nil, nil
}

func (m *memStore) CurrentAllocationsForVendor(_ context.Context, campaignID, vendorID int64) ([]domain.Allocation, error) {
	_, rows, err := m.CurrentSet(context.Background(), campaignID)
	if err != nil {
		return nil, err
	}
	var out []domain.Allocation
	for _, a := range rows {
		if a.VendorID == vendorID {
			out = append(out, a)
		}
	}
	return out, nil
}

// allSets returns the full set history for a campaign, oldest first.
func (m *memStore) allSets(campaignID int64) []domain.AllocationSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AllocationSet
	for _, s := range m.sets {
		if s.CampaignID == campaignID {
			out = append(out, s)
		}
	}
	return out
}

// --- DeliveryRepository ---

func (m *memStore) InsertSample(_ context.Context, sample domain.DeliverySample) (*domain.DeliverySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sample.ID = int64(len(m.samples) + 1)
	m.samples = append(m.samples, sample)
	return &sample, nil
}

func (m *memStore) LatestSamples(_ context.Context, campaignID int64, window domain.SampleWindow) ([]domain.DeliverySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type key struct {
		vendor   int64
		playlist int64
	}
	latest := make(map[key]domain.DeliverySample)
	for _, s := range m.samples {
		if s.CampaignID != campaignID || s.Window != window {
			continue
		}
		k := key{vendor: s.VendorID}
		if s.PlaylistID != nil {
			k.playlist = *s.PlaylistID
		}
		if existing, ok := latest[k]; !ok || s.ObservedAt.After(existing.ObservedAt) {
			latest[k] = s
		}
	}
	out := make([]domain.DeliverySample, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	return out, nil
}

// --- ReportRepository ---

func (m *memStore) SaveReport(_ context.Context, report port.ReconciliationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

func (m *memStore) LatestReport(_ context.Context, campaignID int64) (*port.ReconciliationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *port.ReconciliationReport
	for i := range m.reports {
		r := m.reports[i]
		if r.CampaignID != campaignID {
			continue
		}
		if found == nil || r.ComputedAt.After(found.ComputedAt) {
			found = &r
		}
	}
	return found, nil
}

// --- PaymentRepository ---

func (m *memStore) UpsertAmount(_ context.Context, record domain.PaymentRecord) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{record.CampaignID, record.VendorID}
	if existing, ok := m.payments[k]; ok {
		existing.AmountOwed = record.AmountOwed
		existing.UpdatedAt = record.UpdatedAt
		m.payments[k] = existing
		return &existing, nil
	}
	record.Status = domain.PaymentUnpaid
	m.payments[k] = record
	return &record, nil
}

func (m *memStore) GetPayment(_ context.Context, campaignID, vendorID int64) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[[2]int64{campaignID, vendorID}]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memStore) ListPayments(_ context.Context, campaignID int64) ([]domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentRecord
	for k, p := range m.payments {
		if k[0] == campaignID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, campaignID, vendorID int64, from, to domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{campaignID, vendorID}
	p, ok := m.payments[k]
	if !ok || p.Status != from {
		return port.ErrInvalidTransition
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	m.payments[k] = p
	return nil
}

func (m *memStore) InsertReversal(_ context.Context, reversal domain.PaymentReversal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reversal.ID = int64(len(m.reversals) + 1)
	m.reversals = append(m.reversals, reversal)
	return nil
}

// --- AlertRepository ---

func (m *memStore) UpsertOpen(_ context.Context, campaignID int64, alertType domain.AlertType, severity domain.AlertSeverity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.CampaignID == campaignID && a.Type == alertType && a.ResolvedAt == nil {
			a.Severity = severity
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	m.nextAlertID++
	m.alerts = append(m.alerts, domain.Alert{
		ID:         m.nextAlertID,
		CampaignID: campaignID,
		Type:       alertType,
		Severity:   severity,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	})
	return nil
}

func (m *memStore) ResolveAlert(_ context.Context, campaignID int64, alertType domain.AlertType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.CampaignID == campaignID && a.Type == alertType && a.ResolvedAt == nil {
			t := time.Now()
			a.ResolvedAt = &t
		}
	}
	return nil
}

func (m *memStore) OpenAlerts(_ context.Context, campaignID int64) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.CampaignID == campaignID && a.ResolvedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// resolvedAlerts returns resolved alerts for assertions on the audit trail.
func (m *memStore) resolvedAlerts(campaignID int64) []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.CampaignID == campaignID && a.ResolvedAt != nil {
			out = append(out, a)
		}
	}
	return out
}

// --- SignalRepository ---

func (m *memStore) GetSignals(_ context.Context, campaignID int64) (*domain.ExternalSignals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.signals[campaignID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *memStore) PutSignals(_ context.Context, signals domain.ExternalSignals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[signals.CampaignID] = signals
	return nil
}
