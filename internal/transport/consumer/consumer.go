package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iinboxrepo"
	"github.com/orderdesk/fulfillment/internal/dal/rabbitmq"
	"github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
	"github.com/orderdesk/fulfillment/internal/service/models/inbox"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// Consumer receives fulfillment events from RabbitMQ and records them
// in the durable inbox. The broker gives at-least-once delivery; the
// inbox's unique message id collapses redeliveries, and the pipeline's
// state guards handle anything that slips through.
type Consumer struct {
	client    *rabbitmq.Client
	inboxRepo iinboxrepo.IInboxRepository
	queue     amqp.Queue
	stop      chan struct{}
	done      chan struct{}
}

// NewConsumer creates a new Consumer and declares the event queue.
func NewConsumer(client *rabbitmq.Client, inboxRepo iinboxrepo.IInboxRepository) *Consumer {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	return &Consumer{
		client:    client,
		inboxRepo: inboxRepo,
		queue:     queue,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "fulfillment-svc"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					return c.processMessage(gctx, msg)
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage validates one delivery against the event schema and
// records it in the inbox. Malformed events are rejected without
// requeue; they signal a producer bug, not a transient fault.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	var ev fulfillment.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		slog.Error("Failed to unmarshal fulfillment event", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := ev.Validate(); err != nil {
		slog.Error("Rejecting malformed fulfillment event", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	messageID := ev.EventID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	now := time.Now()
	err := c.inboxRepo.Insert(ctx, inbox.Message{
		MessageID:   messageID,
		QueueName:   c.queue.Name,
		RoutingKey:  msg.RoutingKey,
		Payload:     msg.Body,
		ContentType: msg.ContentType,
		Status:      inbox.StatusPending,
		MaxRetries:  viper.GetInt("rabbitmq.inbox.max_retries"),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	})
	if err != nil {
		slog.Error("Failed to record event in inbox", "order_id", ev.OrderID, "error", err)
		// Requeue: the inbox write is transient territory.
		if err := msg.Nack(false, true); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Info("Fulfillment event recorded", "order_id", ev.OrderID, "event_id", ev.EventID)

	return nil
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
