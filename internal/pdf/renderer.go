// Package pdf renders invoice records into fixed-layout A4 documents.
//
// The layout is a single-cursor state machine over the vertical offset:
// header and client block on page one, then item rows of fixed height
// with a page break whenever the cursor passes the bottom threshold. The
// column header band is drawn once and not repeated on continuation
// pages; the footer is drawn on the last page only.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/factura-admin/api/internal/model"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Layout constants, in millimeters on an A4 portrait page.
const (
	marginLeft   = 20.0
	marginRight  = 190.0
	contentWidth = 170.0
	centerX      = 105.0

	tableTop  = 125.0 // top of the column header band
	rowStart  = 140.0 // first item row baseline
	rowHeight = 8.0
	breakAt   = 260.0 // rows past this offset move to a new page
	pageTop   = 20.0  // cursor position after a page break
	footerAt  = 280.0

	colDescription = 22.0
	colQuantity    = 120.0
	colUnitPrice   = 140.0
	colTotal       = 170.0

	maxDescriptionChars = 50
)

// Document is a rendered invoice file.
type Document struct {
	Filename string
	Pages    int
	Data     []byte
}

// RenderInvoice lays the invoice out onto one or more pages and returns
// the finished PDF. On failure no document is produced; rendering has no
// side effects on the invoice record.
func RenderInvoice(inv model.Invoice) (*Document, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	// Title
	doc.SetFont("Helvetica", "B", 24)
	textCentered(doc, centerX, 20, "INVOICE")

	// Invoice details
	doc.SetFont("Helvetica", "", 10)
	doc.Text(marginLeft, 40, fmt.Sprintf("Invoice #: %s", inv.InvoiceNumber))
	doc.Text(marginLeft, 46, fmt.Sprintf("Issue Date: %s", inv.IssueDate.Format("02 Jan 2006")))
	doc.Text(marginLeft, 52, fmt.Sprintf("Due Date: %s", inv.DueDate.Format("02 Jan 2006")))
	doc.Text(marginLeft, 58, fmt.Sprintf("Status: %s", inv.Status))

	// Bill To block. Optional contact fields keep their fixed line
	// slots; absent ones are skipped, not rendered empty.
	doc.SetFont("Helvetica", "B", 10)
	doc.Text(marginLeft, 75, "Bill To:")
	doc.SetFont("Helvetica", "", 10)
	doc.Text(marginLeft, 81, inv.Client.Name)
	doc.Text(marginLeft, 87, fmt.Sprintf("Ref: %s", inv.ClientReferenceCode))
	if inv.Client.Email != "" {
		doc.Text(marginLeft, 93, inv.Client.Email)
	}
	if inv.Client.Phone != "" {
		doc.Text(marginLeft, 99, inv.Client.Phone)
	}
	if inv.Client.Location != "" {
		doc.Text(marginLeft, 105, inv.Client.Location)
	}

	// Column header band (page one only)
	doc.SetFillColor(59, 130, 246)
	doc.Rect(marginLeft, tableTop, contentWidth, 8, "F")
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 10)
	doc.Text(colDescription, tableTop+5.5, "Description")
	doc.Text(colQuantity, tableTop+5.5, "Qty")
	doc.Text(colUnitPrice, tableTop+5.5, "Price")
	doc.Text(colTotal, tableTop+5.5, "Total")

	// Item rows
	doc.SetTextColor(0, 0, 0)
	doc.SetFont("Helvetica", "", 10)
	y := rowStart

	for i, item := range inv.Items {
		if y > breakAt {
			doc.AddPage()
			y = pageTop
		}

		doc.Text(colDescription, y, truncate(item.Description, maxDescriptionChars))
		doc.Text(colQuantity, y, item.Quantity.String())
		doc.Text(colUnitPrice, y, money(item.UnitPrice))
		doc.Text(colTotal, y, money(item.TotalPrice))
		y += rowHeight

		if i < len(inv.Items)-1 {
			doc.SetDrawColor(200, 200, 200)
			doc.Line(marginLeft, y-3, marginRight, y-3)
		}
	}

	// Totals block, immediately after the last row
	y += 10
	doc.SetFont("Helvetica", "", 10)
	doc.Text(colUnitPrice, y, "Subtotal:")
	doc.Text(colTotal, y, money(inv.Subtotal))

	y += 7
	doc.Text(colUnitPrice, y, fmt.Sprintf("Tax (%s%%):", displayRate(inv.TaxRate)))
	doc.Text(colTotal, y, money(inv.TaxAmount))

	y += 10
	doc.SetFont("Helvetica", "B", 12)
	doc.Text(colUnitPrice, y, "Total:")
	doc.Text(colTotal, y, money(inv.TotalAmount))

	// Notes, word-wrapped to the content width
	if inv.Notes != "" {
		y += 20
		doc.SetFont("Helvetica", "B", 10)
		doc.Text(marginLeft, y, "Notes:")
		doc.SetFont("Helvetica", "", 10)
		doc.SetXY(marginLeft, y+2)
		doc.MultiCell(contentWidth, 5, inv.Notes, "", "L", false)
	}

	// Footer, last page only
	doc.SetFont("Helvetica", "", 8)
	doc.SetTextColor(128, 128, 128)
	textCentered(doc, centerX, footerAt, "Thank you for your business!")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}

	return &Document{
		Filename: inv.InvoiceNumber + ".pdf",
		Pages:    doc.PageCount(),
		Data:     buf.Bytes(),
	}, nil
}

// money formats an amount the way the document shows all currency.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// displayRate renders the tax rate as a percentage. Stored rates come in
// two shapes: fractions (0.2) and already-percentages (20); values above
// 1 are treated as the latter for compatibility with both.
func displayRate(rate decimal.Decimal) string {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.StringFixed(2)
	}
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

func truncate(s string, max int) string {
	if s == "" {
		return "No description"
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func textCentered(doc *fpdf.Fpdf, x, y float64, s string) {
	doc.Text(x-doc.GetStringWidth(s)/2, y, s)
}
