package ordersvc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/orderdesk/fulfillment/internal/dal/storage"
	"github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"github.com/orderdesk/fulfillment/internal/service/services/fulfillmentsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeStorage struct {
	uploads map[string][]byte
}

func (s *pipeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (storage.UploadResult, error) {
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[key] = data

	return storage.UploadResult{Key: key, URL: "https://storage.example/" + key}, nil
}

type pipeRenderer struct{}

func (pipeRenderer) Render(data invoice.Data) ([]byte, error) {
	return []byte("%PDF-fake " + data.OrderID), nil
}

type pipeDispatcher struct {
	sent int
}

func (d *pipeDispatcher) Send(ctx context.Context, to []string, subject, body string, attachment []byte, filename string) error {
	d.sent++

	return nil
}

type signingURLCache struct{}

func (signingURLCache) GetURL(ctx context.Context, userID int64, orderID, storageKey string) (string, error) {
	return "https://storage.example/" + storageKey + "?sig=test", nil
}

// Submitting an order, draining its outbox event through the pipeline
// and listing invoices again must yield Success with a document link.
func TestSubmitProcessList_EndToEnd(t *testing.T) {
	svc, u := newTestService()
	svc.urlCache = signingURLCache{}

	userID := int64(42)
	ord, err := svc.SubmitOrder(context.Background(), userID, []CartItem{
		{SKU: "WIDGET-1", Description: "Widget, large", Quantity: 2, UnitCostCents: 5000},
	}, validBilling())
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, ord.Status)

	before, err := svc.ListInvoices(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "Pending", before[0].Status)
	assert.Empty(t, before[0].PdfURL)

	// Hand the outbox event to the fulfillment pipeline, backed by the
	// same repositories the submit wrote to.
	require.Len(t, u.outboxRepo.messages, 1)
	var ev fulfillment.Event
	require.NoError(t, json.Unmarshal(u.outboxRepo.messages[0].Payload, &ev))

	dispatcher := &pipeDispatcher{}
	pipeline := fulfillmentsvc.MustNewFulfillmentService(
		fulfillmentsvc.WithOrderRepository(u.orderRepo),
		fulfillmentsvc.WithOrderItemRepository(u.itemRepo),
		fulfillmentsvc.WithBillingRepository(u.billRepo),
		fulfillmentsvc.WithStorage(&pipeStorage{}),
		fulfillmentsvc.WithRenderer(pipeRenderer{}),
		fulfillmentsvc.WithDispatcher(dispatcher),
		fulfillmentsvc.WithOpsMailbox("ops@orderdesk.example"),
	)
	require.NoError(t, pipeline.Process(context.Background(), ev))
	assert.Equal(t, 2, dispatcher.sent)

	after, err := svc.ListInvoices(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, ord.OrderID, after[0].InvoiceID)
	assert.Equal(t, "Success", after[0].Status)
	assert.NotEmpty(t, after[0].PdfURL)

	// The document surface agrees with the listing.
	svc.storage = &fakeExistsGateway{existing: map[string]bool{
		storage.ObjectKey(ord.OrderID): true,
	}}
	require.NoError(t, svc.CheckDocument(context.Background(), userID, ord.OrderID))
	url, err := svc.DocumentURL(context.Background(), userID, ord.OrderID)
	require.NoError(t, err)
	assert.Contains(t, url, storage.ObjectKey(ord.OrderID))
}
