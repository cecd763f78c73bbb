package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/orderdesk/fulfillment/internal/service/models/billing"
	"github.com/orderdesk/fulfillment/internal/service/models/orderitem"
)

// Service fee applied to small orders, in cents.
const (
	ServiceFeeThresholdCents int64 = 15000
	ServiceFeeCents          int64 = 1000
)

// Order is the aggregate root for one customer purchase request.
// OrderItems and Billing are owned by composition: items are immutable
// after creation and the billing snapshot is captured once at submit
// time, never re-derived from the user's live billing records.
type Order struct {
	ID              int64     `json:"id"`
	OrderID         string    `json:"orderId"`
	UserID          *int64    `json:"userId,omitempty"`
	CustomerEmail   string    `json:"customerEmail"`
	CustomerOrg     string    `json:"customerOrg"`
	Status          Status    `json:"status"`
	SubtotalCents   int64     `json:"subtotalCents"`
	ServiceFeeCents int64     `json:"serviceFeeCents"`
	TotalCents      int64     `json:"totalCents"`
	ItemCount       int       `json:"itemCount"`
	DocumentKey     string    `json:"documentKey,omitempty"`
	DocumentURL     string    `json:"documentUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	OrderItems []orderitem.OrderItem `json:"orderItems"`
	Billing    *billing.Snapshot     `json:"billing,omitempty"`
}

// ServiceFee returns the flat surcharge for the given subtotal.
func ServiceFee(subtotalCents int64) int64 {
	if subtotalCents >= ServiceFeeThresholdCents {
		return 0
	}

	return ServiceFeeCents
}

const idSuffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderID generates an externally-facing order id of the form
// ORD-<14-digit compact timestamp>-<5-char uppercase alphanumeric>.
// The random suffix keeps ids generated within the same second unique;
// each character is drawn uniformly from the charset.
func NewOrderID() string {
	charsetLen := big.NewInt(int64(len(idSuffixCharset)))
	buf := make([]byte, 5)
	for i := range buf {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			panic(fmt.Sprintf("failed to read random bytes: %v", err))
		}
		buf[i] = idSuffixCharset[n.Int64()]
	}

	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102150405"), string(buf))
}
