package billing_test

import (
	"testing"

	"github.com/factura-admin/api/internal/billing"
	"github.com/factura-admin/api/internal/model"
	"github.com/shopspring/decimal"
)

func item(qty, price string) model.LineItem {
	return model.LineItem{
		Quantity:  decimal.RequireFromString(qty),
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestComputeTotals(t *testing.T) {
	testCases := []struct {
		name         string
		items        []model.LineItem
		taxRate      string
		wantSubtotal string
		wantTax      string
		wantTotal    string
	}{
		{
			name:         "single item 20% tax",
			items:        []model.LineItem{item("2", "10.00")},
			taxRate:      "0.2",
			wantSubtotal: "20.00",
			wantTax:      "4.00",
			wantTotal:    "24.00",
		},
		{
			name:         "multiple items",
			items:        []model.LineItem{item("3", "19.99"), item("1", "5.50")},
			taxRate:      "0.2",
			wantSubtotal: "65.47",
			wantTax:      "13.09",
			wantTotal:    "78.56",
		},
		{
			name:         "no items",
			items:        nil,
			taxRate:      "0.2",
			wantSubtotal: "0.00",
			wantTax:      "0.00",
			wantTotal:    "0.00",
		},
		{
			name:         "zero tax rate",
			items:        []model.LineItem{item("4", "2.50")},
			taxRate:      "0",
			wantSubtotal: "10.00",
			wantTax:      "0.00",
			wantTotal:    "10.00",
		},
		{
			name:         "zero quantity contributes nothing",
			items:        []model.LineItem{item("0", "99.99"), item("1", "10.00")},
			taxRate:      "0.2",
			wantSubtotal: "10.00",
			wantTax:      "2.00",
			wantTotal:    "12.00",
		},
		{
			name:         "missing unit price contributes nothing",
			items:        []model.LineItem{{Quantity: decimal.NewFromInt(5)}, item("1", "10.00")},
			taxRate:      "0.2",
			wantSubtotal: "10.00",
			wantTax:      "2.00",
			wantTotal:    "12.00",
		},
		{
			name:         "half rounds away from zero",
			items:        []model.LineItem{item("1", "2.005")},
			taxRate:      "0",
			wantSubtotal: "2.01",
			wantTax:      "0.00",
			wantTotal:    "2.01",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := billing.ComputeTotals(tc.items, decimal.RequireFromString(tc.taxRate))

			if s := got.Subtotal.StringFixed(2); s != tc.wantSubtotal {
				t.Errorf("subtotal: got %s, want %s", s, tc.wantSubtotal)
			}
			if s := got.TaxAmount.StringFixed(2); s != tc.wantTax {
				t.Errorf("tax: got %s, want %s", s, tc.wantTax)
			}
			if s := got.TotalAmount.StringFixed(2); s != tc.wantTotal {
				t.Errorf("total: got %s, want %s", s, tc.wantTotal)
			}
		})
	}
}

// Tax is computed from the unrounded subtotal. With subtotal 10.007 and a
// 50% rate, tax is 5.0035 -> 5.00; computing from the rounded subtotal
// 10.01 would give 5.005 -> 5.01.
func TestComputeTotalsTaxFromUnroundedSubtotal(t *testing.T) {
	got := billing.ComputeTotals([]model.LineItem{item("1", "10.007")}, decimal.RequireFromString("0.5"))

	if s := got.Subtotal.StringFixed(2); s != "10.01" {
		t.Errorf("subtotal: got %s, want 10.01", s)
	}
	if s := got.TaxAmount.StringFixed(2); s != "5.00" {
		t.Errorf("tax: got %s, want 5.00", s)
	}
	if s := got.TotalAmount.StringFixed(2); s != "15.01" {
		t.Errorf("total: got %s, want 15.01", s)
	}
}

// Rounding to 2 dp is idempotent, so already-rounded outputs survive a
// second pass unchanged.
func TestComputeTotalsRoundingIdempotent(t *testing.T) {
	got := billing.ComputeTotals([]model.LineItem{item("3", "0.333")}, decimal.RequireFromString("0.2"))

	if !got.Subtotal.Round(2).Equal(got.Subtotal) {
		t.Errorf("subtotal not stable under re-rounding: %s", got.Subtotal)
	}
	if !got.TaxAmount.Round(2).Equal(got.TaxAmount) {
		t.Errorf("tax not stable under re-rounding: %s", got.TaxAmount)
	}
	if !got.TotalAmount.Round(2).Equal(got.TotalAmount) {
		t.Errorf("total not stable under re-rounding: %s", got.TotalAmount)
	}
}

func TestComputeTotalsTotalIsSumOfRoundedComponents(t *testing.T) {
	got := billing.ComputeTotals([]model.LineItem{item("7", "1.437"), item("2", "3.333")}, decimal.RequireFromString("0.2"))

	want := got.Subtotal.Add(got.TaxAmount).Round(2)
	if !got.TotalAmount.Equal(want) {
		t.Errorf("total: got %s, want %s", got.TotalAmount, want)
	}
}

func TestLineTotal(t *testing.T) {
	testCases := []struct {
		qty, price, want string
	}{
		{"3", "19.99", "59.97"},
		{"3", "0.333", "1.00"},
		{"0", "10.00", "0.00"},
		{"1.5", "2.50", "3.75"},
	}

	for _, tc := range testCases {
		got := billing.LineTotal(item(tc.qty, tc.price))
		if s := got.StringFixed(2); s != tc.want {
			t.Errorf("LineTotal(%s x %s): got %s, want %s", tc.qty, tc.price, s, tc.want)
		}
	}
}
