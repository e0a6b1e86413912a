package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is one purchased item on a receipt.
type ReceiptLine struct {
	Name       string
	Quantity   int
	UnitCents  int64
	TotalCents int64
}

// Receipt holds everything rendered onto an order receipt PDF.
type Receipt struct {
	OrderID    string
	BuyerEmail string
	PlacedAt   time.Time
	Lines      []ReceiptLine
	TotalCents int64
}

// ReceiptRenderer produces PDF receipts for completed orders.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render lays out the receipt on a single A4 page.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if len(receipt.Lines) == 0 {
		return nil, fmt.Errorf("receipt requires at least one line item")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "ORDER RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order: %s", receipt.OrderID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Buyer: %s", receipt.BuyerEmail), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Placed: %s", receipt.PlacedAt.Format(time.RFC1123)), "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 8, "Item", "1", 0, "", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Unit", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, line := range receipt.Lines {
		pdf.CellFormat(90, 7, line.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, formatCents(line.UnitCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, formatCents(line.TotalCents), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(150, 8, "Grand total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, formatCents(receipt.TotalCents), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
