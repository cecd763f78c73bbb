package inbox

import (
	"time"
)

// Row statuses. Pending rows are picked up by the fulfillment worker;
// dead rows exhausted their retries or failed non-retriably and are
// kept for manual inspection.
const (
	StatusPending = "pending"
	StatusDead    = "dead"
)

// Message is a durably recorded fulfillment event. The unique
// MessageID deduplicates broker redeliveries before the pipeline ever
// sees them.
type Message struct {
	ID          int64
	MessageID   string
	QueueName   string
	RoutingKey  string
	Payload     []byte
	ContentType string
	Status      string
	RetryCount  int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextRetryAt time.Time
}
