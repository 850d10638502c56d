// Package service implements the ingestion pipeline: merge candidates from
// all sources, normalize, determine novelty, store, infer rewards, notify.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiftwatch/shiftwatch/internal/codes"
	"github.com/shiftwatch/shiftwatch/internal/metrics"
	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/reward"
	"github.com/shiftwatch/shiftwatch/internal/source"
)

// Store is the persistence surface the pipeline needs. Implemented by
// repository.CodeStore.
type Store interface {
	BatchInsert(ctx context.Context, records []*model.CodeRecord) ([]model.InsertOutcome, error)
	UpdateRewardType(ctx context.Context, normalized, rewardType string) error
	ListActive(ctx context.Context, limit int) ([]model.CodeRecord, error)
	Stats(ctx context.Context) (model.StoreStats, error)
}

// Notifier delivers a batch of newly discovered codes.
type Notifier interface {
	Notify(ctx context.Context, batch *model.NotificationBatch) model.DeliveryReport
}

// IngestService runs the ingestion pipeline against an injected store.
type IngestService struct {
	store  Store
	engine *reward.Engine
	log    zerolog.Logger
}

// NewIngestService creates the pipeline service.
func NewIngestService(store Store, engine *reward.Engine, log zerolog.Logger) *IngestService {
	return &IngestService{
		store:  store,
		engine: engine,
		log:    log,
	}
}

// Ingest normalizes and de-duplicates the candidates, stores the novel ones
// in a single transaction, infers and backfills their rewards, and returns
// the batch of newly created records in insertion order. Re-running with the
// same candidates yields an empty batch. A storage failure aborts the run
// with nothing committed and nothing notified.
func (s *IngestService) Ingest(ctx context.Context, candidates []model.RawCandidate) (*model.NotificationBatch, error) {
	metrics.CandidatesSeen.Add(float64(len(candidates)))

	// Normalize and de-duplicate within the batch, first occurrence wins.
	seen := make(map[string]struct{}, len(candidates))
	records := make([]*model.CodeRecord, 0, len(candidates))
	now := time.Now().UTC()
	for _, cand := range candidates {
		normalized := codes.Normalize(cand.RawCode)
		if normalized == "" {
			s.log.Debug().Str("source", cand.Source).Msg("dropping candidate with empty normalized code")
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		records = append(records, &model.CodeRecord{
			RawCode:        strings.TrimSpace(cand.RawCode),
			NormalizedCode: normalized,
			Source:         cand.Source,
			Context:        cand.Context,
			DiscoveredAt:   now,
			IsActive:       true,
		})
	}

	batch := &model.NotificationBatch{}
	if len(records) == 0 {
		return batch, nil
	}

	outcomes, err := s.store.BatchInsert(ctx, records)
	if err != nil {
		return nil, err
	}

	for i, rec := range records {
		if outcomes[i] != model.OutcomeInserted {
			continue
		}
		rec.RewardType = s.engine.Infer(rec.Context)
		if err := s.store.UpdateRewardType(ctx, rec.NormalizedCode, rec.RewardType); err != nil {
			return nil, err
		}
		batch.Records = append(batch.Records, *rec)
		metrics.CodesInserted.Inc()
		s.log.Info().
			Str("code", rec.RawCode).
			Str("reward", rec.RewardType).
			Str("source", rec.Source).
			Msg("new code discovered")
	}
	return batch, nil
}

// Run executes one full pipeline pass: fetch all sources concurrently,
// ingest the merged candidates, notify, and produce the run summary. Source
// failures are recorded and skipped; only storage failures abort the run.
func (s *IngestService) Run(ctx context.Context, sources []source.Source, notifier Notifier) (*model.RunSummary, error) {
	start := time.Now()
	status := "failure"
	defer func() {
		metrics.RecordRunDuration(status, time.Since(start).Seconds())
	}()

	candidates, failed := s.fetchAll(ctx, sources)

	batch, err := s.Ingest(ctx, candidates)
	if err != nil {
		s.log.Error().Err(err).Msg("ingestion aborted, no notifications sent")
		return nil, err
	}

	if batch.Count() > 0 && notifier != nil {
		report := notifier.Notify(ctx, batch)
		s.log.Info().
			Int("delivered", report.Delivered()).
			Int("failed", report.Failed()).
			Msg("notification delivery finished")
	} else {
		s.log.Info().Msg("no new codes found")
	}

	if stats, err := s.store.Stats(ctx); err == nil {
		s.log.Info().
			Int("total", stats.TotalCount).
			Int("active", stats.ActiveCount).
			Msg("store stats")
	} else {
		s.log.Warn().Err(err).Msg("failed to read store stats")
	}

	summary := &model.RunSummary{
		CodesFound:     batch.Count(),
		SourcesChecked: len(sources),
		SourcesFailed:  failed,
		DurationSecs:   time.Since(start).Seconds(),
		Timestamp:      time.Now().UTC(),
		NewCodes:       make([]model.NewCodeSummary, 0, batch.Count()),
	}
	for _, rec := range batch.Records {
		summary.NewCodes = append(summary.NewCodes, model.NewCodeSummary{
			Code:   rec.RawCode,
			Reward: rec.RewardType,
			Source: rec.Source,
		})
	}
	status = "success"
	return summary, nil
}

// fetchAll runs every source concurrently and merges their candidates in
// source-list order, so in-batch dedup stays first-seen-wins regardless of
// fetch completion order.
func (s *IngestService) fetchAll(ctx context.Context, sources []source.Source) (merged []model.RawCandidate, failed int) {
	results := make([][]model.RawCandidate, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			cands, err := src.Fetch(ctx)
			if err != nil {
				errs[i] = &model.SourceFetchError{Source: src.Name(), Err: err}
				return
			}
			results[i] = cands
		}(i, src)
	}
	wg.Wait()

	for i, src := range sources {
		if errs[i] != nil {
			failed++
			metrics.SourceFailures.WithLabelValues(src.Name()).Inc()
			s.log.Warn().Err(errs[i]).Str("source", src.Name()).Msg("source fetch failed, skipping")
			continue
		}
		s.log.Info().Str("source", src.Name()).Int("candidates", len(results[i])).Msg("source fetched")
		merged = append(merged, results[i]...)
	}
	return merged, failed
}
