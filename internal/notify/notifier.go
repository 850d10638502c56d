// Package notify delivers new-code notifications to configured webhook
// destinations, collapsing large batches into a single summary.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// Message is the structured payload posted to each destination.
type Message struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Code      string    `json:"code,omitempty"`
	Reward    string    `json:"reward,omitempty"`
	Source    string    `json:"source,omitempty"`
	RedeemURL string    `json:"redeem_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configures the notifier. Zero values fall back to the documented
// defaults.
type Options struct {
	Destinations []string
	Threshold    int
	MaxAttempts  int
	BackoffBase  time.Duration
	MinInterval  time.Duration
	SampleSize   int
	Timeout      time.Duration
	RedeemURL    string
}

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 2 * time.Second
	defaultMinInterval = 500 * time.Millisecond
	defaultSampleSize  = 5
	defaultTimeout     = 15 * time.Second
)

func (o *Options) applyDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	if o.MinInterval <= 0 {
		o.MinInterval = defaultMinInterval
	}
	if o.SampleSize <= 0 {
		o.SampleSize = defaultSampleSize
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
}

// buildMessages applies the threshold decision rule to a batch. An empty
// batch yields nothing; a batch within the threshold yields one message per
// code; anything larger (or any non-empty batch when the threshold is zero)
// yields one summary message. Inactive records are never notified.
func buildMessages(batch *model.NotificationBatch, threshold, sampleSize int, redeemURL string) []Message {
	if batch == nil {
		return nil
	}
	var active []model.CodeRecord
	for _, rec := range batch.Records {
		if rec.IsActive {
			active = append(active, rec)
		}
	}
	count := len(active)
	if count == 0 {
		return nil
	}

	now := time.Now().UTC()
	if threshold > 0 && count <= threshold {
		msgs := make([]Message, 0, count)
		for _, rec := range active {
			msgs = append(msgs, Message{
				Title: "New SHiFT code found",
				Body: fmt.Sprintf("Code %s grants %s (found at %s)",
					rec.RawCode, rewardLabel(rec.RewardType), rec.Source),
				Code:      rec.RawCode,
				Reward:    rewardLabel(rec.RewardType),
				Source:    rec.Source,
				RedeemURL: redeemURL,
				Timestamp: now,
			})
		}
		return msgs
	}

	sample := active
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	lines := make([]string, 0, len(sample)+2)
	for _, rec := range sample {
		lines = append(lines, fmt.Sprintf("%s [%s]", rec.RawCode, rewardLabel(rec.RewardType)))
	}
	if remaining := count - len(sample); remaining > 0 {
		lines = append(lines, fmt.Sprintf("…and %d more", remaining))
	}
	lines = append(lines, "Individual notifications were suppressed to prevent spam.")

	return []Message{{
		Title:     fmt.Sprintf("%d new SHiFT codes found", count),
		Body:      strings.Join(lines, "\n"),
		RedeemURL: redeemURL,
		Timestamp: now,
	}}
}

func rewardLabel(rewardType string) string {
	if rewardType == "" {
		return model.RewardUnknown
	}
	return rewardType
}
