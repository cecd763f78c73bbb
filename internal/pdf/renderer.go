package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/orderdesk/fulfillment/internal/service/models/invoice"
)

// Renderer turns structured invoice data into a PDF document. It is
// pure: no I/O, bytes in and bytes out.
type Renderer struct{}

// NewRenderer creates a new invoice renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// Render produces the invoice document for the given data.
func (r *Renderer) Render(data invoice.Data) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(120, 10, "Invoice")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(60, 10, data.OrderID, "", 1, "R", false, 0, "")
	doc.CellFormat(0, 6, data.Date.Format("January 2, 2006"), "", 1, "", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, "Billed to", "", 1, "", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 5, data.Organization, "", 1, "", false, 0, "")
	doc.CellFormat(0, 5, data.CustomerEmail, "", 1, "", false, 0, "")
	doc.MultiCell(0, 5, data.Address, "", "", false)
	doc.CellFormat(0, 5, "Business no. "+data.BusinessNumber, "", 1, "", false, 0, "")
	doc.Ln(8)

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(30, 7, "SKU", "B", 0, "", false, 0, "")
	doc.CellFormat(80, 7, "Description", "B", 0, "", false, 0, "")
	doc.CellFormat(20, 7, "Qty", "B", 0, "R", false, 0, "")
	doc.CellFormat(30, 7, "Unit", "B", 0, "R", false, 0, "")
	doc.CellFormat(30, 7, "Total", "B", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, line := range data.Lines {
		doc.CellFormat(30, 6, line.SKU, "", 0, "", false, 0, "")
		doc.CellFormat(80, 6, line.Description, "", 0, "", false, 0, "")
		doc.CellFormat(20, 6, fmt.Sprintf("%d", line.Quantity), "", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, formatCents(line.UnitCostCents), "", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, formatCents(line.TotalCents), "", 1, "R", false, 0, "")
	}
	doc.Ln(4)

	doc.CellFormat(160, 6, "Subtotal", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, formatCents(data.SubtotalCents), "", 1, "R", false, 0, "")
	doc.CellFormat(160, 6, "Service fee", "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, formatCents(data.ServiceFeeCents), "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(160, 7, "Total", "T", 0, "R", false, 0, "")
	doc.CellFormat(30, 7, formatCents(data.TotalCents), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}

	return buf.Bytes(), nil
}
