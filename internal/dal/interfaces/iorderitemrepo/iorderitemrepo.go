package iorderitemrepo

import (
	"context"

	"github.com/orderdesk/fulfillment/internal/service/models/orderitem"
)

// IOrderItemRepository defines persistence operations on order items.
type IOrderItemRepository interface {
	// BulkInsert persists the items of a freshly created order.
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)

	// ListByOrderIDs returns the items of the given orders.
	ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]orderitem.OrderItem, error)
}
