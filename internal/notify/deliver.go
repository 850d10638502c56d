package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/shiftwatch/shiftwatch/internal/metrics"
	"github.com/shiftwatch/shiftwatch/internal/model"
)

// Notifier delivers messages to every configured destination. Destinations
// are independent failure domains: delivery runs concurrently per
// destination, and one destination's outage never blocks another.
type Notifier struct {
	opts     Options
	client   *http.Client
	limiters map[string]*rate.Limiter
	log      zerolog.Logger
}

// New creates a notifier for the configured destinations.
func New(opts Options, log zerolog.Logger) *Notifier {
	opts.applyDefaults()
	limiters := make(map[string]*rate.Limiter, len(opts.Destinations))
	for _, dest := range opts.Destinations {
		limiters[dest] = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &Notifier{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		limiters: limiters,
		log:      log,
	}
}

// Notify applies the threshold decision rule and delivers the resulting
// messages, returning per-destination counts. An empty batch sends nothing.
func (n *Notifier) Notify(ctx context.Context, batch *model.NotificationBatch) model.DeliveryReport {
	report := model.DeliveryReport{Destinations: make(map[string]model.DestinationReport)}

	msgs := buildMessages(batch, n.opts.Threshold, n.opts.SampleSize, n.opts.RedeemURL)
	if len(msgs) == 0 || len(n.opts.Destinations) == 0 {
		return report
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, dest := range n.opts.Destinations {
		wg.Add(1)
		go func(dest string) {
			defer wg.Done()
			dr := n.deliverAll(ctx, dest, msgs)
			mu.Lock()
			report.Destinations[dest] = dr
			mu.Unlock()
		}(dest)
	}
	wg.Wait()
	return report
}

// deliverAll sends every message to one destination in order, paced by the
// destination's rate limiter. A message that exhausts its retries is
// recorded as failed and delivery moves on to the next message.
func (n *Notifier) deliverAll(ctx context.Context, dest string, msgs []Message) model.DestinationReport {
	var dr model.DestinationReport
	limiter := n.limiters[dest]
	for _, msg := range msgs {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				dr.Attempted++
				dr.Failed++
				metrics.RecordDelivery(dest, "failed")
				continue
			}
		}
		dr.Attempted++
		if err := n.send(ctx, dest, msg); err != nil {
			dr.Failed++
			metrics.RecordDelivery(dest, "failed")
			n.log.Error().Err(err).Str("destination", dest).Msg("notification delivery failed")
			continue
		}
		dr.Delivered++
		metrics.RecordDelivery(dest, "delivered")
	}
	return dr
}

// deliveryState is the per-attempt state machine:
// Pending → Sending → {Delivered, Failed}, with Failed looping back to
// Sending until the attempt ceiling is reached.
type deliveryState int

const (
	statePending deliveryState = iota
	stateSending
	stateDelivered
	stateFailed
)

// send drives one message through the delivery state machine against one
// destination, backing off exponentially between attempts.
func (n *Notifier) send(ctx context.Context, dest string, msg Message) error {
	state := statePending
	attempts := 0
	var lastErr error

	for {
		switch state {
		case statePending:
			state = stateSending

		case stateSending:
			attempts++
			err := n.post(ctx, dest, msg)
			if err == nil {
				state = stateDelivered
				break
			}
			lastErr = err
			if ctx.Err() != nil || !retryable(err) || attempts >= n.opts.MaxAttempts {
				state = stateFailed
				break
			}
			// Exponential backoff: base, 2*base, 4*base, ...
			delay := n.opts.BackoffBase << (attempts - 1)
			n.log.Warn().Err(err).Str("destination", dest).Int("attempt", attempts).
				Dur("retry_in", delay).Msg("delivery attempt failed, retrying")
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				lastErr = ctx.Err()
				state = stateFailed
			case <-timer.C:
			}

		case stateDelivered:
			return nil

		case stateFailed:
			return &model.DeliveryError{Destination: dest, Attempts: attempts, Err: lastErr}
		}
	}
}

// statusError marks a non-success HTTP response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// nonRetryable marks deterministic failures that no retry can fix, such as
// an unencodable payload or a malformed destination URL.
type nonRetryable struct {
	err error
}

func (e *nonRetryable) Error() string { return e.err.Error() }

func (e *nonRetryable) Unwrap() error { return e.err }

// retryable classifies failures: network errors and timeouts retry, as do
// 408, 429 and 5xx responses. Other status codes and deterministic request
// failures fail immediately.
func retryable(err error) bool {
	var nr *nonRetryable
	if errors.As(err, &nr) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusRequestTimeout ||
			se.code == http.StatusTooManyRequests ||
			se.code >= 500
	}
	return true
}

const maxErrorBody = 1024

// post performs one webhook call. Success is a 2xx status; everything else
// is an error for the state machine to classify.
func (n *Notifier) post(ctx context.Context, dest string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return &nonRetryable{err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest, bytes.NewReader(payload))
	if err != nil {
		return &nonRetryable{err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "shiftwatch/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a bounded amount so the connection can be reused.
		io.CopyN(io.Discard, resp.Body, maxErrorBody)
		return &statusError{code: resp.StatusCode}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
