package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/handler"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func invoicesRouter(st *store.Memory) chi.Router {
	r := chi.NewRouter()
	r.Route("/invoices", handler.NewInvoiceHandler(st, nil, nil).RegisterRoutes)
	return r
}

func seedInvoice(t *testing.T, st *store.Memory, ref, status string) string {
	t.Helper()

	inv := model.Invoice{
		InvoiceNumber:       "INV-12345678-001",
		OrderID:             "order-1",
		ClientID:            "client-1",
		ClientReferenceCode: ref,
		Client:              model.InvoiceClient{Name: "Acme Corporation"},
		Items: []model.LineItem{{
			ID:          "i1",
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("10.00"),
			TotalPrice:  decimal.RequireFromString("20.00"),
		}},
		Subtotal:    decimal.RequireFromString("20.00"),
		TaxRate:     decimal.RequireFromString("0.2"),
		TaxAmount:   decimal.RequireFromString("4.00"),
		TotalAmount: decimal.RequireFromString("24.00"),
		IssueDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC),
		Status:      status,
	}
	fields := inv.Fields()
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	id, err := st.Insert(context.Background(), store.CollectionInvoices, fields)
	if err != nil {
		t.Fatalf("insert invoice: %v", err)
	}
	return id
}

func TestListInvoicesRefFilter(t *testing.T) {
	st := store.NewMemory()
	seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPending)
	seedInvoice(t, st, "GLOBEX-002", enum.InvoiceStatusPending)
	r := invoicesRouter(st)

	// The match is a case-insensitive substring.
	req := httptest.NewRequest(http.MethodGet, "/invoices?ref=acme", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp []struct {
		ClientReferenceCode string `json:"clientReferenceCode"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].ClientReferenceCode != "ACME-001" {
		t.Errorf("filtered list: %+v", resp)
	}
}

func TestListInvoicesStatusFilter(t *testing.T) {
	st := store.NewMemory()
	seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPending)
	seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPaid)
	r := invoicesRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/invoices?status=Paid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp []struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].Status != enum.InvoiceStatusPaid {
		t.Errorf("filtered list: %+v", resp)
	}
}

func TestUpdateInvoiceStatus(t *testing.T) {
	st := store.NewMemory()
	id := seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPending)
	r := invoicesRouter(st)

	body := bytes.NewBufferString(`{"status":"Paid"}`)
	req := httptest.NewRequest(http.MethodPatch, "/invoices/"+id+"/status", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != enum.InvoiceStatusPaid {
		t.Errorf("status: got %s, want Paid", resp.Status)
	}
}

func TestUpdateInvoiceStatusInvalid(t *testing.T) {
	st := store.NewMemory()
	id := seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPending)
	r := invoicesRouter(st)

	body := bytes.NewBufferString(`{"status":"Refunded"}`)
	req := httptest.NewRequest(http.MethodPatch, "/invoices/"+id+"/status", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

// Deleting an invoice never reverts its order: the order stays Completed
// and keeps the dangling invoiceId.
func TestDeleteInvoiceLeavesOrderUntouched(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	orderID := seedOrder(t, st, clientID, enum.OrderStatusCompleted)
	invoiceID := seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPending)

	if err := st.UpdateFields(context.Background(), store.CollectionOrders, orderID, map[string]any{
		"invoiceId": invoiceID,
	}); err != nil {
		t.Fatalf("link order: %v", err)
	}

	r := invoicesRouter(st)
	req := httptest.NewRequest(http.MethodDelete, "/invoices/"+invoiceID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}

	doc, err := st.GetByID(context.Background(), store.CollectionOrders, orderID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	order := model.OrderFromDoc(doc)
	if order.Status != enum.OrderStatusCompleted {
		t.Errorf("order status: got %s, want Completed", order.Status)
	}
	if order.InvoiceID != invoiceID {
		t.Errorf("order invoiceId: got %s, want dangling %s", order.InvoiceID, invoiceID)
	}
}

func TestInvoiceDocumentDownload(t *testing.T) {
	st := store.NewMemory()
	id := seedInvoice(t, st, "ACME-001", enum.InvoiceStatusPending)
	r := invoicesRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/invoices/"+id+"/document", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type: got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "INV-12345678-001.pdf") {
		t.Errorf("content disposition: got %s", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestInvoiceDocumentNotFound(t *testing.T) {
	st := store.NewMemory()
	r := invoicesRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/invoices/missing/document", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}
