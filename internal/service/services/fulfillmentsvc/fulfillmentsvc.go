package fulfillmentsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/orderdesk/fulfillment/internal/dal/interfaces/ibillingrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderitemrepo"
	"github.com/orderdesk/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/orderdesk/fulfillment/internal/dal/storage"
	"github.com/orderdesk/fulfillment/internal/service/errs"
	"github.com/orderdesk/fulfillment/internal/service/models/fulfillment"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
	"go.opentelemetry.io/otel"
)

// errAlreadyProcessed signals that a concurrent delivery won the
// PENDING -> PROCESSING race; this run aborts cleanly without side
// effects and leaves the order to the winner.
var errAlreadyProcessed = errors.New("order already processed")

// documentStorage uploads generated invoices.
type documentStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (storage.UploadResult, error)
}

// documentRenderer turns invoice data into a binary document.
type documentRenderer interface {
	Render(data invoice.Data) ([]byte, error)
}

// notificationDispatcher sends an outbound message with an attachment.
type notificationDispatcher interface {
	Send(ctx context.Context, to []string, subject, body string, attachment []byte, filename string) error
}

// FulfillmentService drives an order through the fulfillment state
// machine. Each step re-derives its inputs from the order store and
// gates on the exact expected predecessor state, so re-invoking a step
// after a redelivery never repeats a completed side effect.
type FulfillmentService struct {
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	billingRepo   ibillingrepo.IBillingRepository
	storage       documentStorage
	renderer      documentRenderer
	dispatcher    notificationDispatcher
	opsMailbox    string
}

// option is a function that configures the FulfillmentService.
type option func(*FulfillmentService)

// MustNewFulfillmentService creates a new FulfillmentService.
func MustNewFulfillmentService(opts ...option) *FulfillmentService {
	s := &FulfillmentService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithOrderRepository sets the order repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *FulfillmentService) {
		s.orderRepo = repo
	}
}

// WithOrderItemRepository sets the order item repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderItemRepository(repo iorderitemrepo.IOrderItemRepository) option {
	return func(s *FulfillmentService) {
		s.orderItemRepo = repo
	}
}

// WithBillingRepository sets the billing snapshot repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBillingRepository(repo ibillingrepo.IBillingRepository) option {
	return func(s *FulfillmentService) {
		s.billingRepo = repo
	}
}

// WithStorage sets the object storage gateway.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStorage(gw documentStorage) option {
	return func(s *FulfillmentService) {
		s.storage = gw
	}
}

// WithRenderer sets the document renderer.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRenderer(r documentRenderer) option {
	return func(s *FulfillmentService) {
		s.renderer = r
	}
}

// WithDispatcher sets the notification dispatcher.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDispatcher(d notificationDispatcher) option {
	return func(s *FulfillmentService) {
		s.dispatcher = d
	}
}

// WithOpsMailbox sets the internal operations mailbox address.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOpsMailbox(addr string) option {
	return func(s *FulfillmentService) {
		s.opsMailbox = addr
	}
}

// Process consumes one fulfillment event and runs the pipeline from
// wherever the order currently stands: generate document, upload and
// record, notify. Each step gates on its exact predecessor state, so a
// retry after a transient failure resumes at the first incomplete step
// instead of repeating finished work, and a redelivery of a completed
// order is a clean no-op.
func (s *FulfillmentService) Process(ctx context.Context, ev fulfillment.Event) error {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "Fulfillment.Process")
	defer span.End()

	ord, err := s.loadOrder(ctx, ev)
	if err != nil {
		return err
	}
	if ord == nil {
		return errs.NonRetriablef("order %s not found for user %d", ev.OrderID, ev.UserID)
	}

	// An order with zero items may never leave PENDING.
	if ord.ItemCount == 0 || len(ord.OrderItems) == 0 {
		return errs.NonRetriablef("order %s has no items", ev.OrderID)
	}
	if ord.Billing == nil {
		return errs.NonRetriablef("order %s has no billing snapshot", ev.OrderID)
	}

	switch ord.Status {
	case order.StatusEmailSent, order.StatusFailed:
		slog.Info("Order already in terminal state, skipping",
			"order_id", ev.OrderID,
			"status", ord.Status,
		)

		return nil

	case order.StatusProcessing:
		// Another delivery is mid-generation; it owns the outcome.
		slog.Info("Order is being processed by a concurrent delivery, skipping",
			"order_id", ev.OrderID,
		)

		return nil

	case order.StatusPending:
		doc, err := s.generateDocument(ctx, ev, ord)
		if err != nil {
			if errors.Is(err, errAlreadyProcessed) {
				slog.Info("Lost delivery race, skipping", "order_id", ev.OrderID)

				return nil
			}

			return err
		}
		if err := s.uploadDocument(ctx, ev, doc); err != nil {
			return err
		}

		return s.notify(ctx, ev, doc)

	case order.StatusPDFGenerated:
		// A previous run rendered but never stored; re-render from the
		// same order data and resume with the upload.
		doc, err := s.rerenderDocument(ctx, ev, ord)
		if err != nil {
			return err
		}
		if err := s.uploadDocument(ctx, ev, doc); err != nil {
			return err
		}

		return s.notify(ctx, ev, doc)

	case order.StatusPDFStored:
		// Stored but never notified; only the notification is left.
		doc, err := s.rerenderDocument(ctx, ev, ord)
		if err != nil {
			return err
		}

		return s.notify(ctx, ev, doc)

	default:
		return errs.NonRetriablef("order %s is in unknown state %q", ev.OrderID, ord.Status)
	}
}

// loadOrder fetches the order aggregate with items and billing
// snapshot. Inputs are always re-derived from the store, never trusted
// from the event payload alone.
func (s *FulfillmentService) loadOrder(
	ctx context.Context,
	ev fulfillment.Event,
) (*order.Order, error) {
	ord, err := s.orderRepo.GetByOrderID(ctx, ev.OrderID, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", ev.OrderID, err)
	}
	if ord == nil {
		return nil, nil
	}

	items, err := s.orderItemRepo.ListByOrderIDs(ctx, []int64{ord.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load items for order %s: %w", ev.OrderID, err)
	}
	ord.OrderItems = items

	snap, err := s.billingRepo.GetByOrderID(ctx, ord.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing snapshot for order %s: %w", ev.OrderID, err)
	}
	ord.Billing = snap

	return ord, nil
}

// generateDocument is the first pipeline step: it transitions
// PENDING -> PROCESSING -> PDF_GENERATED and returns the rendered
// document for the next step.
func (s *FulfillmentService) generateDocument(
	ctx context.Context,
	ev fulfillment.Event,
	ord *order.Order,
) ([]byte, error) {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "Fulfillment.generateDocument")
	defer span.End()

	ok, err := s.orderRepo.UpdateStatus(ctx, ev.OrderID, order.StatusPending, order.StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("failed to transition order %s to PROCESSING: %w", ev.OrderID, err)
	}
	if !ok {
		// Lost the race against a concurrent delivery.
		return nil, errAlreadyProcessed
	}

	doc, err := s.renderer.Render(buildInvoiceData(ord))
	if err != nil {
		// The order has already left PENDING; park it in FAILED rather
		// than leaving a stuck PROCESSING row.
		if _, ferr := s.orderRepo.UpdateStatus(ctx, ev.OrderID, order.StatusProcessing, order.StatusFailed); ferr != nil {
			slog.Error("Failed to mark order failed", "order_id", ev.OrderID, "error", ferr)
		}

		return nil, errs.NonRetriable(fmt.Errorf("failed to render invoice for order %s: %w", ev.OrderID, err))
	}

	ok, err = s.orderRepo.UpdateStatus(ctx, ev.OrderID, order.StatusProcessing, order.StatusPDFGenerated)
	if err != nil {
		return nil, fmt.Errorf("failed to transition order %s to PDF_GENERATED: %w", ev.OrderID, err)
	}
	if !ok {
		return nil, errs.NonRetriablef("order %s changed state during document generation", ev.OrderID)
	}

	return doc, nil
}

// rerenderDocument rebuilds the document for an order that already
// passed generation, so a resumed run has bytes to upload or attach.
// Rendering is deterministic over the stored order data; no state
// transition happens here.
func (s *FulfillmentService) rerenderDocument(
	ctx context.Context,
	ev fulfillment.Event,
	ord *order.Order,
) ([]byte, error) {
	_, span := otel.Tracer("fulfillment").Start(ctx, "Fulfillment.rerenderDocument")
	defer span.End()

	doc, err := s.renderer.Render(buildInvoiceData(ord))
	if err != nil {
		// The document rendered fine once; a failure now is a logic
		// error, not a transient fault.
		return nil, errs.NonRetriable(fmt.Errorf("failed to re-render invoice for order %s: %w", ev.OrderID, err))
	}

	return doc, nil
}

// uploadDocument is the second pipeline step: it stores the document
// under a deterministic key and records the reference together with the
// PDF_GENERATED -> PDF_STORED transition.
func (s *FulfillmentService) uploadDocument(
	ctx context.Context,
	ev fulfillment.Event,
	doc []byte,
) error {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "Fulfillment.uploadDocument")
	defer span.End()

	key := storage.ObjectKey(ev.OrderID)

	res, err := s.storage.Upload(ctx, key, doc, "application/pdf")
	if err != nil {
		return fmt.Errorf("failed to upload invoice for order %s: %w", ev.OrderID, err)
	}

	ok, err := s.orderRepo.UpdateDocument(
		ctx,
		ev.OrderID,
		res.Key,
		res.URL,
		order.StatusPDFGenerated,
		order.StatusPDFStored,
	)
	if err != nil {
		return fmt.Errorf("failed to record document for order %s: %w", ev.OrderID, err)
	}
	if !ok {
		return errs.NonRetriablef("order %s changed state during document upload", ev.OrderID)
	}

	return nil
}

// notify is the third pipeline step: it reloads the order for the
// freshest billing snapshot, sends the invoice to the customer and the
// internal operations mailbox, and completes the order.
func (s *FulfillmentService) notify(
	ctx context.Context,
	ev fulfillment.Event,
	doc []byte,
) error {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "Fulfillment.notify")
	defer span.End()

	ord, err := s.loadOrder(ctx, ev)
	if err != nil {
		return err
	}
	if ord == nil || ord.Billing == nil {
		return errs.NonRetriablef("order %s disappeared before notification", ev.OrderID)
	}

	subject := fmt.Sprintf("Your invoice %s", ord.OrderID)
	body := fmt.Sprintf(
		"Hello %s,\n\nyour order %s has been processed. The invoice is attached.\n",
		ord.Billing.Organization,
		ord.OrderID,
	)
	filename := ord.OrderID + ".pdf"

	if err := s.dispatcher.Send(ctx, []string{ord.Billing.Email}, subject, body, doc, filename); err != nil {
		return fmt.Errorf("failed to send customer notification for order %s: %w", ev.OrderID, err)
	}

	opsSubject := fmt.Sprintf("Invoice %s issued", ord.OrderID)
	opsBody := fmt.Sprintf(
		"Order %s for %s (%s) completed, total %d cents.\n",
		ord.OrderID,
		ord.Billing.Organization,
		ord.Billing.Email,
		ord.TotalCents,
	)
	if err := s.dispatcher.Send(ctx, []string{s.opsMailbox}, opsSubject, opsBody, doc, filename); err != nil {
		return fmt.Errorf("failed to send ops notification for order %s: %w", ev.OrderID, err)
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, ev.OrderID, order.StatusPDFStored, order.StatusEmailSent)
	if err != nil {
		return fmt.Errorf("failed to transition order %s to EMAIL_SENT: %w", ev.OrderID, err)
	}
	if !ok {
		return errs.NonRetriablef("order %s changed state during notification", ev.OrderID)
	}

	slog.Info("Order fulfilled", "order_id", ev.OrderID)

	return nil
}

func buildInvoiceData(ord *order.Order) invoice.Data {
	lines := make([]invoice.Line, 0, len(ord.OrderItems))
	for _, item := range ord.OrderItems {
		lines = append(lines, invoice.Line{
			SKU:           item.SKU,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitCostCents: item.UnitCostCents,
			TotalCents:    item.TotalCents,
		})
	}

	return invoice.Data{
		OrderID:         ord.OrderID,
		Date:            ord.CreatedAt,
		CustomerEmail:   ord.Billing.Email,
		Organization:    ord.Billing.Organization,
		Address:         ord.Billing.Address,
		BusinessNumber:  ord.Billing.BusinessNumber,
		Lines:           lines,
		SubtotalCents:   ord.SubtotalCents,
		ServiceFeeCents: ord.ServiceFeeCents,
		TotalCents:      ord.TotalCents,
	}
}
