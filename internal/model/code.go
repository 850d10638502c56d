package model

import (
	"time"
)

// RewardUnknown is the sentinel reward category returned when no keyword
// pattern matches a code's context.
const RewardUnknown = "unknown"

// CodeRecord represents a discovered redemption code in the database.
type CodeRecord struct {
	ID             int64     `db:"id" json:"id"`
	RawCode        string    `db:"code" json:"code"`
	NormalizedCode string    `db:"normalized_code" json:"normalized_code"`
	RewardType     string    `db:"reward_type" json:"reward_type"`
	Source         string    `db:"source" json:"source"`
	Context        string    `db:"context" json:"context"`
	DiscoveredAt   time.Time `db:"discovered_at" json:"discovered_at"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RawCandidate is a code as yielded by a source collaborator, before
// normalization and novelty checking.
type RawCandidate struct {
	RawCode string `json:"raw_code"`
	Source  string `json:"source"`
	Context string `json:"context"`
}

// InsertOutcome reports the result of an idempotent insert attempt.
type InsertOutcome int

const (
	// OutcomeInserted means the record was stored for the first time.
	OutcomeInserted InsertOutcome = iota
	// OutcomeAlreadyExists means a record with the same normalized code
	// was already present and the insert was a no-op.
	OutcomeAlreadyExists
)

func (o InsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// NotificationBatch is the ephemeral set of newly stored codes produced by
// one ingestion run, in insertion order. It is never persisted.
type NotificationBatch struct {
	Records []CodeRecord
}

// Count returns the number of newly discovered codes in the batch.
func (b *NotificationBatch) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// StoreStats summarizes the contents of the code store.
type StoreStats struct {
	TotalCount   int            `json:"total_count"`
	ActiveCount  int            `json:"active_count"`
	CountsByType map[string]int `json:"counts_by_reward_type"`
}

// NewCodeSummary is one newly discovered code in a run summary.
type NewCodeSummary struct {
	Code   string `json:"code"`
	Reward string `json:"reward"`
	Source string `json:"source"`
}

// RunSummary is the structured per-run record consumed by the external
// metrics writer.
type RunSummary struct {
	CodesFound     int              `json:"codes_found"`
	SourcesChecked int              `json:"sources_checked"`
	SourcesFailed  int              `json:"sources_failed"`
	DurationSecs   float64          `json:"execution_time_seconds"`
	Timestamp      time.Time        `json:"timestamp"`
	NewCodes       []NewCodeSummary `json:"new_codes"`
}

// DestinationReport holds per-destination delivery counts for one run.
type DestinationReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// DeliveryReport summarizes notification delivery across all configured
// destinations, keyed by destination URL.
type DeliveryReport struct {
	Destinations map[string]DestinationReport `json:"destinations"`
}

// Delivered returns the total number of delivered messages.
func (r DeliveryReport) Delivered() int {
	n := 0
	for _, d := range r.Destinations {
		n += d.Delivered
	}
	return n
}

// Failed returns the total number of terminally failed messages.
func (r DeliveryReport) Failed() int {
	n := 0
	for _, d := range r.Destinations {
		n += d.Failed
	}
	return n
}
