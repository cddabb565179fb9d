// Package billing holds the financial core: totals computation, invoice
// number generation, and assembly of invoice records from orders.
package billing

import (
	"github.com/factura-admin/api/internal/model"
	"github.com/shopspring/decimal"
)

// Totals is the monetary summary of a set of line items.
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// ComputeTotals sums quantity x unit price over the items and applies
// the tax rate (a fraction, e.g. 0.2 for 20%). The rate is always an
// explicit parameter; defaults belong to callers.
//
// Rounding rule: tax is computed from the unrounded subtotal, then
// subtotal, tax and total are each rounded to 2 decimal places, half
// away from zero. The total is the sum of the two rounded components,
// rounded again (a no-op, kept for the stated invariant
// total == round(subtotal + tax, 2)).
//
// Missing or zero quantities and unit prices contribute nothing; the
// function never fails.
func ComputeTotals(items []model.LineItem, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice))
	}

	tax := subtotal.Mul(taxRate)

	roundedSubtotal := subtotal.Round(2)
	roundedTax := tax.Round(2)

	return Totals{
		Subtotal:    roundedSubtotal,
		TaxAmount:   roundedTax,
		TotalAmount: roundedSubtotal.Add(roundedTax).Round(2),
	}
}

// LineTotal derives an item's total price: quantity x unit price,
// rounded to 2 decimal places. Line items never carry an edited total.
func LineTotal(item model.LineItem) decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice).Round(2)
}
