package billing

import (
	"time"
)

// Snapshot is the billing information captured when an order is
// submitted. It is a copy, not a reference: edits to the user's live
// billing records after submission must not change historical orders.
type Snapshot struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"orderId"`
	Email          string    `json:"email"`
	Organization   string    `json:"organization"`
	Address        string    `json:"address"`
	BusinessNumber string    `json:"businessNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}
