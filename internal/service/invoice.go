// Package service coordinates the order-to-invoice transition.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/factura-admin/api/internal/billing"
	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/pdf"
	"github.com/factura-admin/api/internal/store"
)

// Errors returned by the invoice service. ErrLinkOrder and ErrRender are
// partial failures: by the time they occur the invoice document is
// already persisted, and nothing is rolled back. Callers distinguish
// them with errors.Is and report exactly what failed.
var (
	ErrOrderNotPending = errors.New("order is not pending")
	ErrLinkOrder       = errors.New("invoice created but order update failed")
	ErrRender          = errors.New("invoice document rendering failed")
)

// ProcessStore is the slice of the document store the service needs.
// Satisfied by any store.Store.
type ProcessStore interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
}

// RenderFunc turns an invoice into a downloadable document.
type RenderFunc func(model.Invoice) (*pdf.Document, error)

// InvoiceService runs the Pending -> Completed order transition:
// build invoice draft, persist it, link it from the order, render the
// document. The steps are not transactional; see ProcessOrder.
type InvoiceService struct {
	store   ProcessStore
	numbers *billing.NumberGenerator
	render  RenderFunc
	now     func() time.Time
}

// NewInvoiceService creates the service. A nil render falls back to the
// PDF renderer and a nil now to the wall clock.
func NewInvoiceService(st ProcessStore, numbers *billing.NumberGenerator, render RenderFunc, now func() time.Time) *InvoiceService {
	if numbers == nil {
		numbers = billing.NewNumberGenerator()
	}
	if render == nil {
		render = pdf.RenderInvoice
	}
	if now == nil {
		now = time.Now
	}
	return &InvoiceService{store: st, numbers: numbers, render: render, now: now}
}

// ProcessResult reports how far processing got. Invoice always carries
// the store-assigned id once persistence succeeded; Document is nil when
// rendering failed.
type ProcessResult struct {
	Invoice  model.Invoice
	Document *pdf.Document
}

// ProcessOrder converts a Pending order into an invoice.
//
// Sequence: validate the order snapshot -> build the draft -> insert
// into the invoices collection -> update the order (status Completed,
// invoiceId, updatedAt) -> render the document.
//
// There is no cross-document transaction and no idempotency guard: the
// status check runs against the snapshot the caller fetched, so two
// concurrent calls on the same Pending order both succeed and produce
// two invoices, with the later order update winning. That matches the
// system this replaces.
//
// After the insert succeeds, failures no longer abort cleanly: a failed
// order update leaves an orphan invoice (reported via ErrLinkOrder,
// result still returned); a failed render leaves both writes in place
// (reported via ErrRender). Neither is rolled back.
func (s *InvoiceService) ProcessOrder(ctx context.Context, order model.Order, client model.Client) (*ProcessResult, error) {
	if order.Status != enum.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	draft, err := billing.BuildInvoice(order, client, s.numbers.Next(), s.now())
	if err != nil {
		return nil, err
	}

	fields := draft.Fields()
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	id, err := s.store.Insert(ctx, store.CollectionInvoices, fields)
	if err != nil {
		return nil, fmt.Errorf("persist invoice: %w", err)
	}
	draft.ID = id
	result := &ProcessResult{Invoice: draft}

	err = s.store.UpdateFields(ctx, store.CollectionOrders, order.ID, map[string]any{
		"status":    enum.OrderStatusCompleted,
		"invoiceId": id,
		"updatedAt": store.ServerTimestamp,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrLinkOrder, err)
	}

	doc, err := s.render(draft)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrRender, err)
	}
	result.Document = doc

	return result, nil
}
