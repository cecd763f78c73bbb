package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ibillingrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderitemrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ioutboxrepo"
	"github.com/orderdesk/fulfillment/internal/dal/postgres"
	billingrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/billing/postgres"
	orderrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/orderdesk/fulfillment/internal/dal/repositories/outbox/postgres"
)

// unitOfWork binds the order, item, billing and outbox repositories to
// one transaction so an order submit is a single atomic write.
type unitOfWork struct {
	client *postgres.Client
	tx     pgx.Tx

	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	billingRepo   ibillingrepo.IBillingRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

// NewUnitOfWork creates a unit of work over the given Postgres client.
// Before Begin the repositories run directly on the pool.
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	return &unitOfWork{
		client:        client,
		orderRepo:     orderrepo.NewPostgresOrderRepository(client.Pool()),
		orderItemRepo: orderitemrepo.NewPostgresOrderItemRepository(client.Pool()),
		billingRepo:   billingrepo.NewPostgresBillingRepository(client.Pool()),
		outboxRepo:    outboxrepo.NewOutboxRepository(client.Pool()),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) BillingRepository() ibillingrepo.IBillingRepository {
	return u.billingRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(tx)
	u.billingRepo = billingrepo.NewPostgresBillingRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}
