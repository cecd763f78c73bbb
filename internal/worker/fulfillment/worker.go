package fulfillment

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iinboxrepo"
	"github.com/orderdesk/fulfillment/internal/service/errs"
	fulfillmentmodel "github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
)

// service runs the fulfillment pipeline for one event.
type service interface {
	Process(ctx context.Context, ev fulfillmentmodel.Event) error
}

// Worker drives the fulfillment pipeline from the durable inbox. It
// retries transient failures with exponential backoff and dead-letters
// non-retriable ones; the pipeline's state guards make redundant runs
// safe regardless.
type Worker struct {
	inboxRepo    iinboxrepo.IInboxRepository
	service      service
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new fulfillment worker.
func NewWorker(
	inboxRepo iinboxrepo.IInboxRepository,
	service service,
	pollInterval time.Duration,
	batchSize int,
) *Worker {
	return &Worker{
		inboxRepo:    inboxRepo,
		service:      service,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing events from the inbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Fulfillment worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Fulfillment worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Fulfillment worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages retrieves pending events and runs the pipeline for
// each, sequentially. Events for independent orders carry no shared
// state, so ordering across them is irrelevant.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.inboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from inbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing fulfillment events", "count", len(messages))

	for _, msg := range messages {
		var ev fulfillmentmodel.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			slog.Error("Failed to unmarshal fulfillment event", "inbox_id", msg.ID, "error", err)
			w.deadLetter(ctx, msg.ID, err.Error())

			continue
		}
		if err := ev.Validate(); err != nil {
			slog.Error("Malformed fulfillment event", "inbox_id", msg.ID, "error", err)
			w.deadLetter(ctx, msg.ID, err.Error())

			continue
		}

		err := w.service.Process(ctx, ev)
		if err == nil {
			if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
				slog.Error("Failed to delete processed event from inbox",
					"inbox_id", msg.ID,
					"error", err,
				)
			} else {
				slog.Info("Fulfillment event processed",
					"inbox_id", msg.ID,
					"order_id", ev.OrderID,
				)
			}

			continue
		}

		if errs.IsNonRetriable(err) {
			slog.Error("Non-retriable fulfillment failure, dead-lettering",
				"inbox_id", msg.ID,
				"order_id", ev.OrderID,
				"error", err,
			)
			w.deadLetter(ctx, msg.ID, err.Error())

			continue
		}

		newRetryCount := msg.RetryCount + 1
		if newRetryCount >= msg.MaxRetries {
			slog.Error("Fulfillment retries exhausted, dead-lettering",
				"inbox_id", msg.ID,
				"order_id", ev.OrderID,
				"error", err,
			)
			w.deadLetter(ctx, msg.ID, err.Error())

			continue
		}

		backoffSeconds := math.Pow(2, float64(newRetryCount)) * 15
		nextRetryAt := time.Now().Add(time.Duration(backoffSeconds) * time.Second)

		slog.Warn("Transient fulfillment failure, will retry",
			"inbox_id", msg.ID,
			"order_id", ev.OrderID,
			"retry_count", newRetryCount,
			"next_retry", nextRetryAt,
			"error", err,
		)

		if err := w.inboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
			slog.Error("Failed to update retry information", "inbox_id", msg.ID, "error", err)
		}
	}
}

func (w *Worker) deadLetter(ctx context.Context, inboxID int64, reason string) {
	if err := w.inboxRepo.MarkDead(ctx, inboxID, reason); err != nil {
		slog.Error("Failed to dead-letter inbox message", "inbox_id", inboxID, "error", err)
	}
}
