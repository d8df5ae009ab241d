package anthropic

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BatchRequest bundles the items submitted as one message batch.
type BatchRequest struct {
	Requests []BatchRequestItem
}

// BatchRequestItem pairs a caller-chosen ID with its message parameters.
type BatchRequestItem struct {
	CustomID string
	Params   MessageRequest
}

// BatchResponse reports a batch's processing state.
type BatchResponse struct {
	ID               string
	ProcessingStatus string
	RequestCounts    RequestCounts
}

// RequestCounts tallies batch items by outcome.
type RequestCounts struct {
	Processing int64
	Succeeded  int64
	Errored    int64
	Canceled   int64
	Expired    int64
}

// BatchResultItem is one item's result. Message is set only when Type is
// "succeeded".
type BatchResultItem struct {
	CustomID string
	Type     string
	Message  *MessageResponse
}

const (
	pollInitialDefault = 2 * time.Second
	pollCapDefault     = 15 * time.Second
	pollTimeoutDefault = 30 * time.Minute
)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// PollOption adjusts PollBatch behavior.
type PollOption func(*pollConfig)

// WithPollInterval sets the first wait between polls.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) { c.initial = d }
}

// WithPollCap sets the longest wait between polls.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) { c.cap = d }
}

// WithPollTimeout bounds the total time spent polling when the caller's
// context carries no deadline of its own.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) { c.timeout = d }
}

// PollBatch checks the batch until it ends, doubling the wait up to the cap
// with jitter. Expired and canceled batches return the response together
// with an error so callers can still inspect the counts.
func PollBatch(ctx context.Context, client Client, batchID string, opts ...PollOption) (*BatchResponse, error) {
	cfg := pollConfig{initial: pollInitialDefault, cap: pollCapDefault, timeout: pollTimeoutDefault}
	for _, o := range opts {
		o(&cfg)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	wait := cfg.initial
	for {
		batch, err := client.GetBatch(ctx, batchID)
		if err != nil {
			return nil, eris.Wrapf(err, "anthropic: poll batch %s", batchID)
		}

		switch batch.ProcessingStatus {
		case "ended":
			return batch, nil
		case "expired":
			return batch, eris.Errorf("anthropic: batch %s expired", batchID)
		case "canceled", "canceling":
			return batch, eris.Errorf("anthropic: batch %s canceled", batchID)
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "anthropic: poll batch %s timed out", batchID)
		case <-time.After(wait):
		}
		wait = nextWait(wait, cfg.cap)
	}
}

// nextWait doubles the interval, caps it, and skews it up or down by as
// much as a fifth to spread concurrent pollers.
func nextWait(wait, ceiling time.Duration) time.Duration {
	wait *= 2
	if wait > ceiling {
		wait = ceiling
	}
	jitter := time.Duration(rand.Int64N(int64(wait) / 5))
	if rand.IntN(2) == 0 {
		return wait + jitter
	}
	return wait - jitter
}

// CollectBatchResults drains the iterator into succeeded responses keyed by
// custom ID. Failed items are logged and dropped; the caller decides what a
// missing key means.
func CollectBatchResults(iter BatchResultIterator) (map[string]*MessageResponse, error) {
	defer iter.Close()

	succeeded := make(map[string]*MessageResponse)
	failed := 0
	for iter.Next() {
		item := iter.Item()
		if item.Type == "succeeded" && item.Message != nil {
			succeeded[item.CustomID] = item.Message
			continue
		}
		failed++
		zap.L().Warn("anthropic: batch item failed",
			zap.String("custom_id", item.CustomID),
			zap.String("type", item.Type),
		)
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: collect batch results")
	}

	if failed > 0 {
		zap.L().Warn("anthropic: batch finished with failures",
			zap.Int("succeeded", len(succeeded)),
			zap.Int("failed", failed),
		)
	}
	return succeeded, nil
}
