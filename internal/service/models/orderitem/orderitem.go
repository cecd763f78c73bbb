package orderitem

import (
	"time"
)

// OrderItem represents one line of an order. Lines are immutable once
// the order is created.
type OrderItem struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"orderId"`
	SKU           string    `json:"sku"`
	Description   string    `json:"description"`
	Quantity      int       `json:"quantity"`
	UnitCostCents int64     `json:"unitCostCents"`
	TotalCents    int64     `json:"totalCents"`
	CreatedAt     time.Time `json:"createdAt"`
}
