package outbox

import (
	"time"
)

// Message represents an event waiting to be published to RabbitMQ.
// Rows are written in the same transaction as the order they describe
// and deleted once the publish succeeds.
type Message struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
