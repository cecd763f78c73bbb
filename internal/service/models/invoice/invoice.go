package invoice

import (
	"fmt"
	"time"
)

// Line is one billed line of an invoice.
type Line struct {
	SKU           string `json:"sku"`
	Description   string `json:"description"`
	Quantity      int    `json:"quantity"`
	UnitCostCents int64  `json:"unitCostCents"`
	TotalCents    int64  `json:"totalCents"`
}

// Data is the generic invoice shape handed to the document renderer.
type Data struct {
	OrderID         string    `json:"orderId"`
	Date            time.Time `json:"date"`
	CustomerEmail   string    `json:"customerEmail"`
	Organization    string    `json:"organization"`
	Address         string    `json:"address"`
	BusinessNumber  string    `json:"businessNumber"`
	Lines           []Line    `json:"lines"`
	SubtotalCents   int64     `json:"subtotalCents"`
	ServiceFeeCents int64     `json:"serviceFeeCents"`
	TotalCents      int64     `json:"totalCents"`
}

// Invoice is the read-side projection returned by the listing API.
type Invoice struct {
	InvoiceID   string    `json:"invoiceId"`
	AmountCents int64     `json:"amount"`
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
	PdfURL      string    `json:"pdfUrl,omitempty"`
}

// RecentOrder is the dashboard projection: a handful of representative
// lines and a human-relative timestamp.
type RecentOrder struct {
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	TimeAgo    string `json:"timeAgo"`
	TotalCents int64  `json:"totalCents"`
	Items      []Line `json:"items"`
}

// TimeAgo renders t relative to now for dashboard display.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "a minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "an hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
