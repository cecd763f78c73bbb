package pdf_test

import (
	"testing"
	"time"

	"github.com/orderdesk/fulfillment/internal/pdf"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() invoice.Data {
	return invoice.Data{
		OrderID:        "ORD-20250615120000-A1B2C",
		Date:           time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		CustomerEmail:  "billing@acme.example",
		Organization:   "ACME GmbH",
		Address:        "1 Industrial Way, Springfield",
		BusinessNumber: "12345678901",
		Lines: []invoice.Line{
			{SKU: "WIDGET-1", Description: "Widget, large", Quantity: 2, UnitCostCents: 5000, TotalCents: 10000},
			{SKU: "WIDGET-2", Description: "Widget, small", Quantity: 1, UnitCostCents: 2000, TotalCents: 2000},
		},
		SubtotalCents:   12000,
		ServiceFeeCents: 1000,
		TotalCents:      13000,
	}
}

func TestRenderer_Render(t *testing.T) {
	doc, err := pdf.NewRenderer().Render(sampleData())
	require.NoError(t, err)
	require.NotEmpty(t, doc)
	assert.Equal(t, "%PDF", string(doc[:4]))
}

func TestRenderer_RenderWithoutLines(t *testing.T) {
	data := sampleData()
	data.Lines = nil

	doc, err := pdf.NewRenderer().Render(data)
	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}
