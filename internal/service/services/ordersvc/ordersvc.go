package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ibillingrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderitemrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ioutboxrepo"
	"github.com/orderdesk/fulfillment/internal/dal/postgres"
	"github.com/orderdesk/fulfillment/internal/dal/storage"
	"github.com/orderdesk/fulfillment/internal/dal/uow"
	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/service/models/billing"
	"github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/service/models/orderitem"
	"github.com/orderdesk/fulfillment/internal/service/models/outbox"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const recentOrderItemLimit = 3

// CartItem is one submitted cart line.
type CartItem struct {
	SKU           string
	Description   string
	Quantity      int
	UnitCostCents int64
}

// BillingInfo is the billing payload submitted with the cart.
type BillingInfo struct {
	Email          string
	Organization   string
	Address        string
	BusinessNumber string
}

// unitOfWork is the transactional boundary used by SubmitOrder.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	BillingRepository() ibillingrepo.IBillingRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// urlCache fronts signed-URL issuance for completed orders.
type urlCache interface {
	GetURL(ctx context.Context, userID int64, orderID, storageKey string) (string, error)
}

// storageGateway is the read side of the object storage collaborator.
type storageGateway interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// OrderService is a service for managing orders.
type OrderService struct {
	pgClient   *postgres.Client
	uowFactory func() unitOfWork
	urlCache   urlCache
	storage    storageGateway
}

func (s *OrderService) newUOW() unitOfWork {
	if s.uowFactory != nil {
		return s.uowFactory()
	}

	return uow.NewUnitOfWork(s.pgClient)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithUnitOfWorkFactory overrides the unit of work constructor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.uowFactory = factory
	}
}

// WithURLCache sets the signed-URL cache.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithURLCache(cache urlCache) option {
	return func(s *OrderService) {
		s.urlCache = cache
	}
}

// WithStorage sets the object storage gateway.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStorage(gw storageGateway) option {
	return func(s *OrderService) {
		s.storage = gw
	}
}

// SubmitOrder validates the cart and billing payload, persists the
// order aggregate in PENDING together with its items, billing snapshot
// and one fulfillment event, all in a single transaction.
func (s *OrderService) SubmitOrder(
	ctx context.Context,
	userID int64,
	items []CartItem,
	info BillingInfo,
) (*order.Order, error) {
	if len(items) == 0 {
		return nil, errs.NewValidationError(map[string]string{
			"cart.items": "cart must contain at least one item",
		})
	}
	for i, item := range items {
		if item.Quantity < 1 {
			return nil, errs.NewValidationError(map[string]string{
				fmt.Sprintf("cart.items[%d].quantity", i): "quantity must be a positive integer",
			})
		}
		if item.UnitCostCents < 0 {
			return nil, errs.NewValidationError(map[string]string{
				fmt.Sprintf("cart.items[%d].unitCostCents", i): "unit cost must not be negative",
			})
		}
	}

	now := time.Now()

	var subtotal int64
	orderItems := make([]orderitem.OrderItem, len(items))
	for i, item := range items {
		lineTotal := int64(item.Quantity) * item.UnitCostCents
		subtotal += lineTotal
		orderItems[i] = orderitem.OrderItem{
			SKU:           item.SKU,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitCostCents: item.UnitCostCents,
			TotalCents:    lineTotal,
		}
	}

	fee := order.ServiceFee(subtotal)
	ord := order.Order{
		OrderID:         order.NewOrderID(),
		UserID:          &userID,
		CustomerEmail:   info.Email,
		CustomerOrg:     info.Organization,
		Status:          order.StatusPending,
		SubtotalCents:   subtotal,
		ServiceFeeCents: fee,
		TotalCents:      subtotal + fee,
		ItemCount:       len(orderItems),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to roll back submit transaction", "error", err)
		}
	}()

	ord, err := work.OrderRepository().Insert(ctx, ord)
	if err != nil {
		return nil, err
	}

	for i := range orderItems {
		orderItems[i].OrderID = ord.ID
	}
	orderItems, err = work.OrderItemRepository().BulkInsert(ctx, orderItems)
	if err != nil {
		return nil, err
	}
	ord.OrderItems = orderItems

	snap, err := work.BillingRepository().Insert(ctx, billing.Snapshot{
		OrderID:        ord.ID,
		Email:          info.Email,
		Organization:   info.Organization,
		Address:        info.Address,
		BusinessNumber: info.BusinessNumber,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, err
	}
	ord.Billing = &snap

	ev := fulfillment.Event{
		EventID: uuid.NewString(),
		Name:    fulfillment.EventName,
		OrderID: ord.OrderID,
		UserID:  userID,
		Email:   info.Email,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fulfillment event: %w", err)
	}

	queueName := viper.GetString("rabbitmq.queue")
	err = work.OutboxRepository().Insert(ctx, outbox.Message{
		QueueName:   queueName,
		RoutingKey:  queueName,
		Payload:     payload,
		ContentType: "application/json",
		MaxRetries:  viper.GetInt("rabbitmq.outbox.max_retries"),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit submit transaction: %w", err)
	}

	slog.Info("Order submitted", "order_id", ord.OrderID, "total_cents", ord.TotalCents)

	return &ord, nil
}

// ListInvoices returns the user's orders as invoices, newest first.
// Completed orders are enriched with a signed document URL through the
// URL cache; enrichment runs per order, concurrently, and a single
// failure degrades that invoice instead of failing the listing.
func (s *OrderService) ListInvoices(ctx context.Context, userID int64) ([]invoice.Invoice, error) {
	orders, err := s.newUOW().OrderRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoice.Invoice, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, ord := range orders {
		g.Go(func() error {
			inv := invoice.Invoice{
				InvoiceID:   ord.OrderID,
				AmountCents: ord.TotalCents,
				Status:      string(ord.Status.Coarse()),
				Date:        ord.CreatedAt,
			}

			if ord.Status == order.StatusEmailSent && ord.DocumentKey != "" {
				url, err := s.urlCache.GetURL(gctx, userID, ord.OrderID, ord.DocumentKey)
				if err != nil {
					slog.Error("Failed to enrich invoice with document url",
						"order_id", ord.OrderID,
						"error", err,
					)
				} else {
					inv.PdfURL = url
				}
			}

			invoices[i] = inv

			return nil
		})
	}

	// Enrichment failures are logged and dropped, never propagated.
	_ = g.Wait()

	return invoices, nil
}

// ActiveOrders returns the user's orders that have not yet reached a
// terminal state, newest first.
func (s *OrderService) ActiveOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	orders, err := s.newUOW().OrderRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]order.Order, 0, len(orders))
	for _, ord := range orders {
		if !ord.Status.IsTerminal() {
			active = append(active, ord)
		}
	}

	return active, nil
}

// RecentOrders returns up to limit most recent orders with a relative
// timestamp and up to three representative line items each.
func (s *OrderService) RecentOrders(
	ctx context.Context,
	userID int64,
	limit int,
) ([]invoice.RecentOrder, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	if len(orders) == 0 {
		return []invoice.RecentOrder{}, nil
	}

	orderIDs := make([]int64, len(orders))
	for i, ord := range orders {
		orderIDs[i] = ord.ID
	}
	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	recent := make([]invoice.RecentOrder, len(orders))
	for i, ord := range orders {
		ro := invoice.RecentOrder{
			OrderID:    ord.OrderID,
			Status:     string(ord.Status.Coarse()),
			TimeAgo:    invoice.TimeAgo(ord.CreatedAt, now),
			TotalCents: ord.TotalCents,
		}
		for _, item := range items {
			if item.OrderID != ord.ID || len(ro.Items) >= recentOrderItemLimit {
				continue
			}
			ro.Items = append(ro.Items, invoice.Line{
				SKU:           item.SKU,
				Description:   item.Description,
				Quantity:      item.Quantity,
				UnitCostCents: item.UnitCostCents,
				TotalCents:    item.TotalCents,
			})
		}
		recent[i] = ro
	}

	return recent, nil
}

// Reorder returns the cart contents and billing snapshot of an order
// owned by the caller so a new draft order can be populated. It does
// not create a new order.
func (s *OrderService) Reorder(
	ctx context.Context,
	userID int64,
	orderID string,
) (*order.Order, error) {
	work := s.newUOW()

	ord, err := work.OrderRepository().GetByOrderID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, errs.ErrNotFound
	}

	items, err := work.OrderItemRepository().ListByOrderIDs(ctx, []int64{ord.ID})
	if err != nil {
		return nil, err
	}
	ord.OrderItems = items

	snap, err := work.BillingRepository().GetByOrderID(ctx, ord.ID)
	if err != nil {
		return nil, err
	}
	ord.Billing = snap

	return ord, nil
}

// CheckDocument verifies that the caller owns the order and that its
// invoice document exists in storage. Missing and not-owned orders are
// indistinguishable.
func (s *OrderService) CheckDocument(ctx context.Context, userID int64, orderID string) error {
	ord, err := s.newUOW().OrderRepository().GetByOrderID(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if ord == nil || ord.Status != order.StatusEmailSent || ord.DocumentKey == "" {
		return errs.ErrNotFound
	}

	exists, err := s.storage.Exists(ctx, ord.DocumentKey)
	if err != nil {
		return err
	}
	if !exists {
		return errs.ErrNotFound
	}

	return nil
}

// DocumentURL validates access like CheckDocument and returns a signed
// retrieval URL through the cache.
func (s *OrderService) DocumentURL(ctx context.Context, userID int64, orderID string) (string, error) {
	if err := s.CheckDocument(ctx, userID, orderID); err != nil {
		return "", err
	}

	return s.urlCache.GetURL(ctx, userID, orderID, storage.ObjectKey(orderID))
}
