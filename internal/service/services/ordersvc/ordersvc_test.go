package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ibillingrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderitemrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ioutboxrepo"
	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/service/models/billing"
	"github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/service/models/orderitem"
	"github.com/orderdesk/fulfillment/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOrderRepo struct {
	nextID int64
	orders []*order.Order
}

func (r *memOrderRepo) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	r.nextID++
	o.ID = r.nextID
	cp := o
	r.orders = append(r.orders, &cp)

	return o, nil
}

func (r *memOrderRepo) GetByOrderID(ctx context.Context, orderID string, userID int64) (*order.Order, error) {
	for _, ord := range r.orders {
		if ord.OrderID == orderID && ord.UserID != nil && *ord.UserID == userID {
			cp := *ord

			return &cp, nil
		}
	}

	return nil, nil
}

func (r *memOrderRepo) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	var out []order.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID != nil && *r.orders[i].UserID == userID {
			out = append(out, *r.orders[i])
		}
	}

	return out, nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to order.Status) (bool, error) {
	for _, ord := range r.orders {
		if ord.OrderID == orderID && ord.Status == from {
			ord.Status = to

			return true, nil
		}
	}

	return false, nil
}

func (r *memOrderRepo) UpdateDocument(ctx context.Context, orderID, key, url string, from, to order.Status) (bool, error) {
	for _, ord := range r.orders {
		if ord.OrderID == orderID && ord.Status == from {
			ord.Status = to
			ord.DocumentKey = key
			ord.DocumentURL = url

			return true, nil
		}
	}

	return false, nil
}

type memItemRepo struct {
	nextID int64
	items  []orderitem.OrderItem
}

func (r *memItemRepo) BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	for i := range items {
		r.nextID++
		items[i].ID = r.nextID
		r.items = append(r.items, items[i])
	}

	return items, nil
}

func (r *memItemRepo) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]orderitem.OrderItem, error) {
	var out []orderitem.OrderItem
	for _, item := range r.items {
		for _, id := range orderIDs {
			if item.OrderID == id {
				out = append(out, item)
			}
		}
	}

	return out, nil
}

type memBillingRepo struct {
	snaps []billing.Snapshot
}

func (r *memBillingRepo) Insert(ctx context.Context, snap billing.Snapshot) (billing.Snapshot, error) {
	r.snaps = append(r.snaps, snap)

	return snap, nil
}

func (r *memBillingRepo) GetByOrderID(ctx context.Context, orderID int64) (*billing.Snapshot, error) {
	for _, snap := range r.snaps {
		if snap.OrderID == orderID {
			cp := snap

			return &cp, nil
		}
	}

	return nil, nil
}

type memOutboxRepo struct {
	messages []outbox.Message
}

func (r *memOutboxRepo) Insert(ctx context.Context, msg outbox.Message) error {
	r.messages = append(r.messages, msg)

	return nil
}

func (r *memOutboxRepo) GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	return r.messages, nil
}

func (r *memOutboxRepo) Delete(ctx context.Context, id int64) error { return nil }

func (r *memOutboxRepo) UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	return nil
}

type memUOW struct {
	orderRepo  *memOrderRepo
	itemRepo   *memItemRepo
	billRepo   *memBillingRepo
	outboxRepo *memOutboxRepo

	commits   int
	rollbacks int
}

func (u *memUOW) Begin(ctx context.Context) error    { return nil }
func (u *memUOW) Commit(ctx context.Context) error   { u.commits++; return nil }
func (u *memUOW) Rollback(ctx context.Context) error { u.rollbacks++; return nil }

func (u *memUOW) OrderRepository() iorderrepo.IOrderRepository             { return u.orderRepo }
func (u *memUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository { return u.itemRepo }
func (u *memUOW) BillingRepository() ibillingrepo.IBillingRepository       { return u.billRepo }
func (u *memUOW) OutboxRepository() ioutboxrepo.IOutboxRepository          { return u.outboxRepo }

type fakeURLCache struct {
	urls map[string]string
	errs map[string]error
}

func (c *fakeURLCache) GetURL(ctx context.Context, userID int64, orderID, storageKey string) (string, error) {
	if err := c.errs[orderID]; err != nil {
		return "", err
	}

	return c.urls[orderID], nil
}

type fakeExistsGateway struct {
	existing map[string]bool
}

func (g *fakeExistsGateway) Exists(ctx context.Context, key string) (bool, error) {
	return g.existing[key], nil
}

func newTestService() (*OrderService, *memUOW) {
	u := &memUOW{
		orderRepo:  &memOrderRepo{},
		itemRepo:   &memItemRepo{},
		billRepo:   &memBillingRepo{},
		outboxRepo: &memOutboxRepo{},
	}
	svc := MustNewOrderService(
		WithUnitOfWorkFactory(func() unitOfWork { return u }),
		WithURLCache(&fakeURLCache{urls: map[string]string{}}),
		WithStorage(&fakeExistsGateway{existing: map[string]bool{}}),
	)

	return svc, u
}

func validBilling() BillingInfo {
	return BillingInfo{
		Email:          "billing@acme.example",
		Organization:   "ACME GmbH",
		Address:        "1 Industrial Way, Springfield",
		BusinessNumber: "12345678901",
	}
}

func TestSubmitOrder_ComputesTotalsInCents(t *testing.T) {
	svc, u := newTestService()

	ord, err := svc.SubmitOrder(context.Background(), 42, []CartItem{
		{SKU: "WIDGET-1", Quantity: 2, UnitCostCents: 5000},
		{SKU: "WIDGET-2", Quantity: 1, UnitCostCents: 2000},
	}, validBilling())
	require.NoError(t, err)

	assert.Equal(t, int64(12000), ord.SubtotalCents)
	assert.Equal(t, int64(1000), ord.ServiceFeeCents, "orders under the threshold pay the fee")
	assert.Equal(t, int64(13000), ord.TotalCents)
	assert.Equal(t, order.StatusPending, ord.Status)
	assert.Equal(t, 2, ord.ItemCount)
	assert.Equal(t, 1, u.commits)
}

func TestSubmitOrder_NoFeeAboveThreshold(t *testing.T) {
	svc, _ := newTestService()

	ord, err := svc.SubmitOrder(context.Background(), 42, []CartItem{
		{SKU: "RACK-9", Quantity: 3, UnitCostCents: 5000},
	}, validBilling())
	require.NoError(t, err)

	assert.Equal(t, int64(15000), ord.SubtotalCents)
	assert.Equal(t, int64(0), ord.ServiceFeeCents)
	assert.Equal(t, int64(15000), ord.TotalCents)
}

func TestSubmitOrder_WritesExactlyOneOutboxEvent(t *testing.T) {
	svc, u := newTestService()

	ord, err := svc.SubmitOrder(context.Background(), 42, []CartItem{
		{SKU: "WIDGET-1", Quantity: 1, UnitCostCents: 5000},
	}, validBilling())
	require.NoError(t, err)

	require.Len(t, u.outboxRepo.messages, 1)

	var ev fulfillment.Event
	require.NoError(t, json.Unmarshal(u.outboxRepo.messages[0].Payload, &ev))
	assert.Equal(t, fulfillment.EventName, ev.Name)
	assert.Equal(t, ord.OrderID, ev.OrderID)
	assert.Equal(t, int64(42), ev.UserID)
	assert.Equal(t, "billing@acme.example", ev.Email)
	assert.NotEmpty(t, ev.EventID)
	require.NoError(t, ev.Validate())
}

func TestSubmitOrder_RejectsEmptyCart(t *testing.T) {
	svc, u := newTestService()

	_, err := svc.SubmitOrder(context.Background(), 42, nil, validBilling())
	require.Error(t, err)

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "cart.items")
	assert.Equal(t, 0, u.commits, "nothing is persisted")
}

func TestSubmitOrder_RejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SubmitOrder(context.Background(), 42, []CartItem{
		{SKU: "WIDGET-1", Quantity: 0, UnitCostCents: 5000},
	}, validBilling())

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "cart.items[0].quantity")
}

func TestListInvoices_EnrichmentFailureDegradesSingleInvoice(t *testing.T) {
	svc, u := newTestService()

	userID := int64(42)
	for i := 0; i < 3; i++ {
		ord := order.Order{
			OrderID:       fmt.Sprintf("ORD-2025061512000%d-AAAA%d", i, i),
			UserID:        &userID,
			Status:        order.StatusEmailSent,
			TotalCents:    1000,
			DocumentKey:   fmt.Sprintf("invoices/%d.pdf", i),
			SubtotalCents: 1000,
		}
		_, err := u.orderRepo.Insert(context.Background(), ord)
		require.NoError(t, err)
	}

	cache := &fakeURLCache{
		urls: map[string]string{
			"ORD-20250615120000-AAAA0": "https://signed/0",
			"ORD-20250615120002-AAAA2": "https://signed/2",
		},
		errs: map[string]error{
			"ORD-20250615120001-AAAA1": fmt.Errorf("redis down"),
		},
	}
	svc.urlCache = cache

	invoices, err := svc.ListInvoices(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, invoices, 3, "every order is listed despite the enrichment failure")

	withURL := 0
	for _, inv := range invoices {
		assert.Equal(t, "Success", inv.Status)
		if inv.PdfURL != "" {
			withURL++
		}
	}
	assert.Equal(t, 2, withURL)
}

func TestActiveOrders_FiltersTerminalStates(t *testing.T) {
	svc, u := newTestService()

	userID := int64(42)
	statuses := []order.Status{
		order.StatusPending,
		order.StatusProcessing,
		order.StatusEmailSent,
		order.StatusFailed,
	}
	for i, st := range statuses {
		_, err := u.orderRepo.Insert(context.Background(), order.Order{
			OrderID: fmt.Sprintf("ORD-2025061512000%d-BBBB%d", i, i),
			UserID:  &userID,
			Status:  st,
		})
		require.NoError(t, err)
	}

	active, err := svc.ActiveOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, ord := range active {
		assert.False(t, ord.Status.IsTerminal())
	}
}

func TestRecentOrders_LimitsOrdersAndLines(t *testing.T) {
	svc, u := newTestService()

	userID := int64(42)
	for i := 0; i < 4; i++ {
		ord, err := u.orderRepo.Insert(context.Background(), order.Order{
			OrderID:   fmt.Sprintf("ORD-2025061512000%d-CCCC%d", i, i),
			UserID:    &userID,
			Status:    order.StatusEmailSent,
			CreatedAt: time.Now(),
		})
		require.NoError(t, err)

		var items []orderitem.OrderItem
		for j := 0; j < 5; j++ {
			items = append(items, orderitem.OrderItem{
				OrderID: ord.ID, SKU: fmt.Sprintf("SKU-%d-%d", i, j), Quantity: 1, UnitCostCents: 100, TotalCents: 100,
			})
		}
		_, err = u.itemRepo.BulkInsert(context.Background(), items)
		require.NoError(t, err)
	}

	recent, err := svc.RecentOrders(context.Background(), userID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, ro := range recent {
		assert.Len(t, ro.Items, 3, "at most three representative lines")
		assert.NotEmpty(t, ro.TimeAgo)
	}
}

func TestReorder_UnknownOrOtherUsersOrderIsNotFound(t *testing.T) {
	svc, u := newTestService()

	owner := int64(42)
	ord, err := u.orderRepo.Insert(context.Background(), order.Order{
		OrderID: "ORD-20250615120000-DDDD1",
		UserID:  &owner,
		Status:  order.StatusEmailSent,
	})
	require.NoError(t, err)

	_, err = svc.Reorder(context.Background(), 99, ord.OrderID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.Reorder(context.Background(), owner, "ORD-20250615120000-EEEE1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReorder_ReturnsItemsAndBillingSnapshot(t *testing.T) {
	svc, u := newTestService()

	owner := int64(42)
	ord, err := u.orderRepo.Insert(context.Background(), order.Order{
		OrderID: "ORD-20250615120000-FFFF1",
		UserID:  &owner,
		Status:  order.StatusEmailSent,
	})
	require.NoError(t, err)

	_, err = u.itemRepo.BulkInsert(context.Background(), []orderitem.OrderItem{
		{OrderID: ord.ID, SKU: "WIDGET-1", Quantity: 2, UnitCostCents: 5000, TotalCents: 10000},
	})
	require.NoError(t, err)

	_, err = u.billRepo.Insert(context.Background(), billing.Snapshot{
		OrderID: ord.ID, Email: "billing@acme.example", Organization: "ACME GmbH",
	})
	require.NoError(t, err)

	got, err := svc.Reorder(context.Background(), owner, ord.OrderID)
	require.NoError(t, err)
	require.Len(t, got.OrderItems, 1)
	assert.Equal(t, "WIDGET-1", got.OrderItems[0].SKU)
	require.NotNil(t, got.Billing)
	assert.Equal(t, "ACME GmbH", got.Billing.Organization)
}

func TestCheckDocument(t *testing.T) {
	svc, u := newTestService()

	owner := int64(42)
	gw := &fakeExistsGateway{existing: map[string]bool{"invoices/present.pdf": true}}
	svc.storage = gw

	done, err := u.orderRepo.Insert(context.Background(), order.Order{
		OrderID: "ORD-20250615120000-GGGG1", UserID: &owner,
		Status: order.StatusEmailSent, DocumentKey: "invoices/present.pdf",
	})
	require.NoError(t, err)

	pending, err := u.orderRepo.Insert(context.Background(), order.Order{
		OrderID: "ORD-20250615120000-GGGG2", UserID: &owner,
		Status: order.StatusProcessing,
	})
	require.NoError(t, err)

	missing, err := u.orderRepo.Insert(context.Background(), order.Order{
		OrderID: "ORD-20250615120000-GGGG3", UserID: &owner,
		Status: order.StatusEmailSent, DocumentKey: "invoices/gone.pdf",
	})
	require.NoError(t, err)

	assert.NoError(t, svc.CheckDocument(context.Background(), owner, done.OrderID))
	assert.ErrorIs(t, svc.CheckDocument(context.Background(), owner, pending.OrderID), errs.ErrNotFound)
	assert.ErrorIs(t, svc.CheckDocument(context.Background(), owner, missing.OrderID), errs.ErrNotFound)
	assert.ErrorIs(t, svc.CheckDocument(context.Background(), 99, done.OrderID), errs.ErrNotFound)
}
