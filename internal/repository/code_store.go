package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// CodeStore binds the code repository to a database handle and owns the
// transaction boundaries the ingestion pipeline relies on.
type CodeStore struct {
	db   *sqlx.DB
	repo *CodeRepository
}

// NewCodeStore creates a store over the given handle.
func NewCodeStore(db *sqlx.DB) *CodeStore {
	return &CodeStore{
		db:   db,
		repo: NewCodeRepository(),
	}
}

// Contains reports whether the normalized code is already known.
func (s *CodeStore) Contains(ctx context.Context, normalized string) (bool, error) {
	return s.repo.Contains(ctx, s.db, normalized)
}

// InsertIfAbsent stores a single record unless already present.
func (s *CodeStore) InsertIfAbsent(ctx context.Context, record *model.CodeRecord) (model.InsertOutcome, error) {
	return s.repo.InsertIfAbsent(ctx, s.db, record)
}

// BatchInsert stores the records in one transaction, returning per-record
// outcomes in order. All-or-nothing: on any failure the transaction is
// rolled back and no subset is committed.
func (s *CodeStore) BatchInsert(ctx context.Context, records []*model.CodeRecord) ([]model.InsertOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &model.StorageError{Op: "begin batch insert", Err: err}
	}
	defer tx.Rollback()

	outcomes, err := s.repo.BatchInsert(ctx, tx, records)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, &model.StorageError{Op: "commit batch insert", Err: err}
	}
	return outcomes, nil
}

// UpdateRewardType backfills an inferred reward onto a stored code.
func (s *CodeStore) UpdateRewardType(ctx context.Context, normalized, rewardType string) error {
	return s.repo.UpdateRewardType(ctx, s.db, normalized, rewardType)
}

// SetActive toggles a code's active flag.
func (s *CodeStore) SetActive(ctx context.Context, normalized string, active bool) error {
	return s.repo.SetActive(ctx, s.db, normalized, active)
}

// ListActive returns active codes newest-first.
func (s *CodeStore) ListActive(ctx context.Context, limit int) ([]model.CodeRecord, error) {
	return s.repo.ListActive(ctx, s.db, limit)
}

// Stats returns aggregate store counts.
func (s *CodeStore) Stats(ctx context.Context) (model.StoreStats, error) {
	return s.repo.Stats(ctx, s.db)
}
