package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/model"
)

// DueDateDays is the standard payment term: due date = issue date + 30 days.
const DueDateDays = 30

// ErrNoLineItems is returned when an invoice is built from an order with
// no items. An invoice with zero rows is invalid.
var ErrNoLineItems = errors.New("order has no line items")

// BuildInvoice assembles an unsaved invoice from an order and its
// client. The result owns independent copies of the client contact block
// and the items; mutating it later never touches the inputs.
//
// Each item's total price is recomputed from quantity x unit price
// rather than trusted from the stored order, guarding against stale or
// missing totals. The order-level financial snapshot (subtotal, tax
// rate, tax amount, total) is taken verbatim: it was authoritative when
// the order was written and is not recomputed at invoice time.
func BuildInvoice(order model.Order, client model.Client, number string, now time.Time) (model.Invoice, error) {
	if len(order.Items) == 0 {
		return model.Invoice{}, ErrNoLineItems
	}

	items := make([]model.LineItem, len(order.Items))
	for i, item := range order.Items {
		item.TotalPrice = LineTotal(item)
		items[i] = item
	}

	issueDate := now
	dueDate := now.AddDate(0, 0, DueDateDays)

	return model.Invoice{
		InvoiceNumber:       number,
		OrderID:             order.ID,
		ClientID:            client.ID,
		ClientReferenceCode: client.ReferenceCode,
		Client: model.InvoiceClient{
			Name:     client.Name,
			Email:    client.Email,
			Phone:    client.Phone,
			Location: client.Location,
		},
		Items:       items,
		Subtotal:    order.Subtotal,
		TaxRate:     order.TaxRate,
		TaxAmount:   order.TaxAmount,
		TotalAmount: order.TotalAmount,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Status:      enum.InvoiceStatusPending,
		Notes:       fmt.Sprintf("Generated from Order #%s", order.OrderNumber),
	}, nil
}
