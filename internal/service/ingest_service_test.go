package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/reward"
	"github.com/shiftwatch/shiftwatch/internal/source"
)

func newTestService(store Store) *IngestService {
	return NewIngestService(store, reward.NewEngine(nil), zerolog.Nop())
}

func TestIngestStoresNewCode(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	batch, err := svc.Ingest(context.Background(), []model.RawCandidate{
		{RawCode: "AAAAA-11111-BBBBB-22222-CCCCC", Source: "siteA", Context: "golden key reward"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, batch.Count())

	rec := batch.Records[0]
	assert.Equal(t, "AAAAA-11111-BBBBB-22222-CCCCC", rec.RawCode)
	assert.Equal(t, "AAAAA11111BBBBB22222CCCCC", rec.NormalizedCode)
	assert.Equal(t, "golden key", rec.RewardType)
	assert.Equal(t, "siteA", rec.Source)
	assert.True(t, rec.IsActive)

	// The reward was also backfilled onto the stored record.
	stored := store.records[rec.NormalizedCode]
	assert.Equal(t, "golden key", stored.RewardType)
}

func TestIngestDeduplicatesWithinBatch(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	batch, err := svc.Ingest(context.Background(), []model.RawCandidate{
		{RawCode: "ABCDE-FGHIJ", Source: "first", Context: ""},
		{RawCode: "abcde fghij", Source: "second", Context: ""},
	})
	require.NoError(t, err)
	require.Equal(t, 1, batch.Count())

	// First occurrence wins: the stored record carries the first source.
	assert.Equal(t, "first", batch.Records[0].Source)
	assert.Equal(t, "ABCDE-FGHIJ", batch.Records[0].RawCode)
}

func TestIngestDropsEmptyNormalizedCodes(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	batch, err := svc.Ingest(context.Background(), []model.RawCandidate{
		{RawCode: "", Source: "siteA"},
		{RawCode: "   ", Source: "siteA"},
		{RawCode: "---", Source: "siteA"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Count())
	assert.Empty(t, store.records)
}

func TestIngestIdempotentAcrossRuns(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	candidates := []model.RawCandidate{
		{RawCode: "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", Source: "siteA", Context: "diamond key"},
		{RawCode: "11111-22222-33333-44444-55555", Source: "siteB", Context: ""},
	}

	first, err := svc.Ingest(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count())

	second, err := svc.Ingest(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Count())
}

func TestIngestStorageFailureAborts(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("disk full")
	svc := newTestService(store)

	before, _ := store.Stats(context.Background())

	batch, err := svc.Ingest(context.Background(), []model.RawCandidate{
		{RawCode: "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", Source: "siteA"},
	})
	require.Error(t, err)
	assert.Nil(t, batch)

	var se *model.StorageError
	assert.ErrorAs(t, err, &se)

	// No partial insert.
	after, _ := store.Stats(context.Background())
	assert.Equal(t, before.TotalCount, after.TotalCount)
}

func TestIngestSevenUnknownRewards(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	var candidates []model.RawCandidate
	for i := 0; i < 7; i++ {
		candidates = append(candidates, model.RawCandidate{
			RawCode: fmt.Sprintf("X%d%dXX-AAAAA-BBBBB-CCCCC-DDDDD", i, i),
			Source:  "siteA",
			Context: "no matching phrases here",
		})
	}

	batch, err := svc.Ingest(context.Background(), candidates)
	require.NoError(t, err)
	require.Equal(t, 7, batch.Count())
	for _, rec := range batch.Records {
		assert.Equal(t, model.RewardUnknown, rec.RewardType)
	}
}

func TestRunNotifiesOnlyInsertedCodes(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	notifier := &recordingNotifier{}

	sources := []source.Source{
		&memSource{name: "siteA", candidates: []model.RawCandidate{
			{RawCode: "AAAAA-11111-BBBBB-22222-CCCCC", Source: "siteA", Context: "golden key reward"},
		}},
	}

	summary, err := svc.Run(context.Background(), sources, notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CodesFound)
	assert.Equal(t, 1, summary.SourcesChecked)
	assert.Equal(t, 0, summary.SourcesFailed)
	require.Len(t, summary.NewCodes, 1)
	assert.Equal(t, "golden key", summary.NewCodes[0].Reward)

	require.Len(t, notifier.batches, 1)
	assert.Equal(t, 1, notifier.batches[0].Count())

	// Second run over the same sources: nothing new, nothing notified.
	summary, err = svc.Run(context.Background(), sources, notifier)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CodesFound)
	assert.Len(t, notifier.batches, 1)
}

func TestRunToleratesPartialSourceFailure(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	notifier := &recordingNotifier{}

	sources := []source.Source{
		&memSource{name: "down", err: errors.New("connection refused")},
		&memSource{name: "up", candidates: []model.RawCandidate{
			{RawCode: "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", Source: "up", Context: ""},
		}},
	}

	summary, err := svc.Run(context.Background(), sources, notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CodesFound)
	assert.Equal(t, 2, summary.SourcesChecked)
	assert.Equal(t, 1, summary.SourcesFailed)
}

func TestRunStorageFailureSkipsNotification(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("lock contention")
	svc := newTestService(store)
	notifier := &recordingNotifier{}

	sources := []source.Source{
		&memSource{name: "siteA", candidates: []model.RawCandidate{
			{RawCode: "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", Source: "siteA", Context: ""},
		}},
	}

	_, err := svc.Run(context.Background(), sources, notifier)
	require.Error(t, err)
	assert.Empty(t, notifier.batches)
}

func TestRunMergesSourcesInListOrder(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	notifier := &recordingNotifier{}

	// Both sources yield the same code; the record must credit the first
	// source in list order, regardless of fetch completion order.
	sources := []source.Source{
		&memSource{name: "first", candidates: []model.RawCandidate{
			{RawCode: "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", Source: "first", Context: ""},
		}},
		&memSource{name: "second", candidates: []model.RawCandidate{
			{RawCode: "aaaaa bbbbb ccccc ddddd eeeee", Source: "second", Context: ""},
		}},
	}

	summary, err := svc.Run(context.Background(), sources, notifier)
	require.NoError(t, err)
	require.Equal(t, 1, summary.CodesFound)
	assert.Equal(t, "first", summary.NewCodes[0].Source)
}
