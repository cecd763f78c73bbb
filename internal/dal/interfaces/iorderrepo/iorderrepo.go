package iorderrepo

import (
	"context"

	"github.com/orderdesk/fulfillment/internal/service/models/order"
)

// IOrderRepository defines persistence operations on the orders table.
type IOrderRepository interface {
	// Insert persists a new order and returns it with generated fields.
	Insert(ctx context.Context, o order.Order) (order.Order, error)

	// GetByOrderID returns the order owned by userID, or nil when it
	// does not exist or belongs to someone else.
	GetByOrderID(ctx context.Context, orderID string, userID int64) (*order.Order, error)

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]order.Order, error)

	// UpdateStatus transitions the order from exactly `from` to `to`.
	// It reports false when the order was not in `from`, making the
	// guard-check-then-transition pattern a single compare-and-swap.
	UpdateStatus(ctx context.Context, orderID string, from, to order.Status) (bool, error)

	// UpdateDocument records the generated document key/url together
	// with the status transition, under the same state guard.
	UpdateDocument(ctx context.Context, orderID, key, url string, from, to order.Status) (bool, error)
}
