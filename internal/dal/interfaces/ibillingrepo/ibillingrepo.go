package ibillingrepo

import (
	"context"

	"github.com/orderdesk/fulfillment/internal/service/models/billing"
)

// IBillingRepository defines persistence operations on billing
// snapshots.
type IBillingRepository interface {
	// Insert persists the snapshot captured at order creation.
	Insert(ctx context.Context, snap billing.Snapshot) (billing.Snapshot, error)

	// GetByOrderID returns the snapshot for the given internal order id.
	GetByOrderID(ctx context.Context, orderID int64) (*billing.Snapshot, error)
}
