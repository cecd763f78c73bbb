package iinboxrepo

import (
	"context"
	"time"

	"github.com/orderdesk/fulfillment/internal/service/models/inbox"
)

// IInboxRepository defines the interface for the durable fulfillment
// inbox.
type IInboxRepository interface {
	// Insert records a consumed event. Redeliveries of an already
	// recorded message id are ignored.
	Insert(ctx context.Context, msg inbox.Message) error

	// GetPendingMessages retrieves pending messages ready to process.
	GetPendingMessages(ctx context.Context, limit int) ([]inbox.Message, error)

	// Delete removes a message after successful processing.
	Delete(ctx context.Context, id int64) error

	// UpdateRetry updates retry count and error information.
	UpdateRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error

	// MarkDead parks a message that must not be retried.
	MarkDead(ctx context.Context, id int64, lastError string) error
}
