package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

func nowUTC() time.Time { return time.Now().UTC() }

// DBExecutor interface for database operations (can be *sqlx.DB or *sqlx.Tx)
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// CodeRepository handles code row operations. It is stateless; every method
// takes the executor it should run against.
type CodeRepository struct{}

// NewCodeRepository creates a new code repository
func NewCodeRepository() *CodeRepository {
	return &CodeRepository{}
}

// Contains reports whether a code with the given normalized form exists.
func (r *CodeRepository) Contains(ctx context.Context, db DBExecutor, normalized string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM codes WHERE normalized_code = $1)`

	var exists bool
	if err := db.GetContext(ctx, &exists, query, normalized); err != nil {
		return false, &model.StorageError{Op: "check code existence", Err: err}
	}
	return exists, nil
}

// InsertIfAbsent stores the record unless its normalized code is already
// present. Atomic per record: the unique index on normalized_code decides,
// so concurrent runs can never both observe OutcomeInserted for one code.
// The record's CreatedAt is set on success; a zero DiscoveredAt is filled
// with CreatedAt.
func (r *CodeRepository) InsertIfAbsent(ctx context.Context, db DBExecutor, record *model.CodeRecord) (model.InsertOutcome, error) {
	query := `
		INSERT INTO codes (code, normalized_code, reward_type, source, context, discovered_at, is_active, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NOW())
		ON CONFLICT (normalized_code) DO NOTHING
		RETURNING id, created_at
	`

	if record.DiscoveredAt.IsZero() {
		record.DiscoveredAt = nowUTC()
	}
	err := db.GetContext(ctx, record, query,
		record.RawCode, record.NormalizedCode, record.RewardType,
		record.Source, record.Context, record.DiscoveredAt, record.IsActive)
	if err == sql.ErrNoRows {
		return model.OutcomeAlreadyExists, nil
	}
	if err != nil {
		return model.OutcomeAlreadyExists, &model.StorageError{Op: "insert code", Err: err}
	}
	return model.OutcomeInserted, nil
}

// BatchInsert runs InsertIfAbsent for each record in order against the given
// executor, returning per-record outcomes. Callers wanting all-or-nothing
// semantics pass a transaction; any error leaves nothing committed.
func (r *CodeRepository) BatchInsert(ctx context.Context, db DBExecutor, records []*model.CodeRecord) ([]model.InsertOutcome, error) {
	outcomes := make([]model.InsertOutcome, 0, len(records))
	for _, record := range records {
		outcome, err := r.InsertIfAbsent(ctx, db, record)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// UpdateRewardType persists a (re-)inferred reward onto a stored code. Along
// with is_active this is the only mutation a record admits after creation.
func (r *CodeRepository) UpdateRewardType(ctx context.Context, db DBExecutor, normalized, rewardType string) error {
	query := `UPDATE codes SET reward_type = NULLIF($1, '') WHERE normalized_code = $2`

	result, err := db.ExecContext(ctx, query, rewardType, normalized)
	if err != nil {
		return &model.StorageError{Op: "update reward type", Err: err}
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &model.StorageError{Op: "update reward type", Err: err}
	}
	if rowsAffected == 0 {
		return &model.StorageError{Op: "update reward type", Err: sql.ErrNoRows}
	}
	return nil
}

// SetActive toggles a code's active flag.
func (r *CodeRepository) SetActive(ctx context.Context, db DBExecutor, normalized string, active bool) error {
	query := `UPDATE codes SET is_active = $1 WHERE normalized_code = $2`

	if _, err := db.ExecContext(ctx, query, active, normalized); err != nil {
		return &model.StorageError{Op: "set active flag", Err: err}
	}
	return nil
}

// ListActive returns active codes newest-first by discovery time.
func (r *CodeRepository) ListActive(ctx context.Context, db DBExecutor, limit int) ([]model.CodeRecord, error) {
	query := `
		SELECT id, code, normalized_code, COALESCE(reward_type, '') AS reward_type,
		       source, context, discovered_at, is_active, created_at
		FROM codes
		WHERE is_active
		ORDER BY discovered_at DESC
		LIMIT $1
	`

	var records []model.CodeRecord
	if err := db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, &model.StorageError{Op: "list active codes", Err: err}
	}
	return records, nil
}

// Stats returns aggregate counts over the store.
func (r *CodeRepository) Stats(ctx context.Context, db DBExecutor) (model.StoreStats, error) {
	stats := model.StoreStats{CountsByType: make(map[string]int)}

	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_active) AS active
		FROM codes
	`
	var counts struct {
		Total  int `db:"total"`
		Active int `db:"active"`
	}
	if err := db.GetContext(ctx, &counts, query); err != nil {
		return stats, &model.StorageError{Op: "count codes", Err: err}
	}
	stats.TotalCount = counts.Total
	stats.ActiveCount = counts.Active

	byType := `
		SELECT COALESCE(reward_type, 'unknown') AS reward_type, COUNT(*) AS n
		FROM codes
		GROUP BY 1
	`
	var rows []struct {
		RewardType string `db:"reward_type"`
		N          int    `db:"n"`
	}
	if err := db.SelectContext(ctx, &rows, byType); err != nil {
		return stats, &model.StorageError{Op: "count codes by reward", Err: err}
	}
	for _, row := range rows {
		stats.CountsByType[row.RewardType] = row.N
	}
	return stats, nil
}
