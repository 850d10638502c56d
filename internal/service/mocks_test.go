package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// memStore is a small in-memory Store used by unit tests. BatchInsert is
// all-or-nothing like the real transaction-backed store.
type memStore struct {
	mu      sync.Mutex
	records map[string]*model.CodeRecord
	order   []string

	insertErr error // simulate a storage failure mid-transaction
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*model.CodeRecord)}
}

func (m *memStore) BatchInsert(ctx context.Context, records []*model.CodeRecord) ([]model.InsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		// Nothing committed, mirroring transaction rollback.
		return nil, &model.StorageError{Op: "batch insert", Err: m.insertErr}
	}
	outcomes := make([]model.InsertOutcome, 0, len(records))
	for _, rec := range records {
		if _, exists := m.records[rec.NormalizedCode]; exists {
			outcomes = append(outcomes, model.OutcomeAlreadyExists)
			continue
		}
		cp := *rec
		m.records[rec.NormalizedCode] = &cp
		m.order = append(m.order, rec.NormalizedCode)
		outcomes = append(outcomes, model.OutcomeInserted)
	}
	return outcomes, nil
}

func (m *memStore) UpdateRewardType(ctx context.Context, normalized, rewardType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return &model.StorageError{Op: "update reward type", Err: m.updateErr}
	}
	rec, ok := m.records[normalized]
	if !ok {
		return &model.StorageError{Op: "update reward type", Err: errors.New("not found")}
	}
	rec.RewardType = rewardType
	return nil
}

func (m *memStore) ListActive(ctx context.Context, limit int) ([]model.CodeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CodeRecord
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if rec := m.records[m.order[i]]; rec.IsActive {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) Stats(ctx context.Context) (model.StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := model.StoreStats{CountsByType: make(map[string]int)}
	for _, rec := range m.records {
		stats.TotalCount++
		if rec.IsActive {
			stats.ActiveCount++
		}
		reward := rec.RewardType
		if reward == "" {
			reward = model.RewardUnknown
		}
		stats.CountsByType[reward]++
	}
	return stats, nil
}

// memSource yields fixed candidates or a fixed error.
type memSource struct {
	name       string
	candidates []model.RawCandidate
	err        error
}

func (s *memSource) Name() string { return s.name }

func (s *memSource) Fetch(ctx context.Context) ([]model.RawCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

// recordingNotifier captures the batches it is asked to deliver.
type recordingNotifier struct {
	mu      sync.Mutex
	batches []*model.NotificationBatch
}

func (n *recordingNotifier) Notify(ctx context.Context, batch *model.NotificationBatch) model.DeliveryReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, batch)
	report := model.DeliveryReport{Destinations: make(map[string]model.DestinationReport)}
	report.Destinations["test"] = model.DestinationReport{
		Attempted: batch.Count(), Delivered: batch.Count(),
	}
	return report
}
