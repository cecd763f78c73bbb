package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderdesk/fulfillment/internal/dal/mail"
	"github.com/orderdesk/fulfillment/internal/dal/postgres"
	"github.com/orderdesk/fulfillment/internal/dal/rabbitmq"
	billingrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/billing/postgres"
	inboxrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/inbox/postgres"
	orderrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/outbox/postgres"
	"github.com/orderdesk/fulfillment/internal/dal/storage"
	"github.com/orderdesk/fulfillment/internal/dal/urlcache"
	"github.com/orderdesk/fulfillment/internal/otel"
	"github.com/orderdesk/fulfillment/internal/pdf"
	"github.com/orderdesk/fulfillment/internal/service/services/fulfillmentsvc"
	"github.com/orderdesk/fulfillment/internal/service/services/ordersvc"
	"github.com/orderdesk/fulfillment/internal/transport/consumer"
	httptransport "github.com/orderdesk/fulfillment/internal/transport/http"
	fulfillmentworker "github.com/orderdesk/fulfillment/internal/worker/fulfillment"
	outboxworker "github.com/orderdesk/fulfillment/internal/worker/outbox"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	orderSvc          *ordersvc.OrderService
	fulfillmentSvc    *fulfillmentsvc.FulfillmentService
	transport         *httptransport.HTTPTransport
	consumerTransp    *consumer.Consumer
	outboxWorker      *outboxworker.Worker
	fulfillmentWorker *fulfillmentworker.Worker
	postgresClient    *postgres.Client
	rabbitMqClient    *rabbitmq.Client
	otelController    *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()
	storageGateway := storage.MustNewGateway()
	dispatcher := mail.MustNewDispatcher()

	urlCache, err := urlcache.New(
		urlcache.NewRedisStore(viper.GetString("cache.addr")),
		storageGateway,
		viper.GetDuration("cache.sign_expiry"),
		viper.GetDuration("cache.url_ttl"),
	)
	if err != nil {
		panic(err)
	}

	orderRepository := orderrepo.NewPostgresOrderRepository(postgresClient.Pool())
	orderItemRepository := orderitemrepo.NewPostgresOrderItemRepository(postgresClient.Pool())
	billingRepository := billingrepo.NewPostgresBillingRepository(postgresClient.Pool())
	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	inboxRepository := inboxrepo.NewInboxRepository(postgresClient.Pool())

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithURLCache(urlCache),
		ordersvc.WithStorage(storageGateway),
	)

	fulfillmentSvc := fulfillmentsvc.MustNewFulfillmentService(
		fulfillmentsvc.WithOrderRepository(orderRepository),
		fulfillmentsvc.WithOrderItemRepository(orderItemRepository),
		fulfillmentsvc.WithBillingRepository(billingRepository),
		fulfillmentsvc.WithStorage(storageGateway),
		fulfillmentsvc.WithRenderer(pdf.NewRenderer()),
		fulfillmentsvc.WithDispatcher(dispatcher),
		fulfillmentsvc.WithOpsMailbox(viper.GetString("mail.ops_mailbox")),
	)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	consumerTransp := consumer.NewConsumer(rabbitMqClient, inboxRepository)

	outboxWorker := outboxworker.NewWorker(outboxRepository, rabbitMqClient)

	fulfillmentWorker := fulfillmentworker.NewWorker(
		inboxRepository,
		fulfillmentSvc,
		viper.GetDuration("rabbitmq.inbox.poll_interval"),
		viper.GetInt("rabbitmq.inbox.batch_size"),
	)

	return &App{
		orderSvc:          orderSvc,
		fulfillmentSvc:    fulfillmentSvc,
		transport:         transport,
		consumerTransp:    consumerTransp,
		outboxWorker:      outboxWorker,
		fulfillmentWorker: fulfillmentWorker,
		postgresClient:    postgresClient,
		rabbitMqClient:    rabbitMqClient,
		otelController:    otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	go func() {
		slog.Info("Starting fulfillment worker")
		a.fulfillmentWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown shuts components down sequentially: HTTP server,
// workers, consumer, RabbitMQ, PostgreSQL, and OpenTelemetry.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	a.fulfillmentWorker.Stop()
	slog.Info("Fulfillment worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
