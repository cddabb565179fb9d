package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/handler"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/service"
	"github.com/factura-admin/api/internal/store"
	"github.com/go-chi/chi/v5"
)

func ordersRouter(t *testing.T, st *store.Memory) chi.Router {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	svc := service.NewInvoiceService(st, nil, nil, nil)

	r := chi.NewRouter()
	r.Route("/orders", handler.NewOrderHandler(st, svc, node, nil).RegisterRoutes)
	return r
}

func TestCreateOrder(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	r := ordersRouter(t, st)

	payload := map[string]any{
		"clientId": clientID,
		"items": []map[string]any{
			{"description": "Consulting", "quantity": 2, "unitPrice": 10.00},
			{"description": "Hosting", "quantity": 1, "unitPrice": 5.50},
		},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID          string `json:"id"`
		OrderNumber string `json:"orderNumber"`
		Subtotal    string `json:"subtotal"`
		TaxRate     string `json:"taxRate"`
		TaxAmount   string `json:"taxAmount"`
		TotalAmount string `json:"totalAmount"`
		Status      string `json:"status"`
		Items       []struct {
			ID         string `json:"id"`
			TotalPrice string `json:"totalPrice"`
		} `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.ID == "" {
		t.Error("no id assigned")
	}
	if !strings.HasPrefix(resp.OrderNumber, "ORD-") {
		t.Errorf("order number: got %s", resp.OrderNumber)
	}
	if resp.Status != enum.OrderStatusPending {
		t.Errorf("status: got %s, want Pending", resp.Status)
	}

	// Totals are computed server-side with the 20% default rate.
	if resp.Subtotal != "25.50" {
		t.Errorf("subtotal: got %s, want 25.50", resp.Subtotal)
	}
	if resp.TaxRate != "0.2" {
		t.Errorf("taxRate: got %s, want 0.2", resp.TaxRate)
	}
	if resp.TaxAmount != "5.10" {
		t.Errorf("taxAmount: got %s, want 5.10", resp.TaxAmount)
	}
	if resp.TotalAmount != "30.60" {
		t.Errorf("totalAmount: got %s, want 30.60", resp.TotalAmount)
	}

	// Every item gets an id and a derived total.
	for i, it := range resp.Items {
		if it.ID == "" {
			t.Errorf("items[%d]: no id assigned", i)
		}
	}
	if resp.Items[0].TotalPrice != "20.00" || resp.Items[1].TotalPrice != "5.50" {
		t.Errorf("item totals: got %s, %s", resp.Items[0].TotalPrice, resp.Items[1].TotalPrice)
	}
}

func TestCreateOrderExplicitTaxRate(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	r := ordersRouter(t, st)

	payload := map[string]any{
		"clientId": clientID,
		"taxRate":  0,
		"items":    []map[string]any{{"description": "Consulting", "quantity": 1, "unitPrice": 100}},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		TaxRate   string `json:"taxRate"`
		TaxAmount string `json:"taxAmount"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// An explicit zero rate is honored, not replaced with the default.
	if resp.TaxRate != "0" {
		t.Errorf("taxRate: got %s, want 0", resp.TaxRate)
	}
	if resp.TaxAmount != "0.00" {
		t.Errorf("taxAmount: got %s, want 0.00", resp.TaxAmount)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	r := ordersRouter(t, st)

	testCases := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"missing client", `{"items":[{"description":"x","quantity":1,"unitPrice":1}]}`, http.StatusBadRequest},
		{"no items", `{"clientId":"` + clientID + `","items":[]}`, http.StatusBadRequest},
		{"blank description", `{"clientId":"` + clientID + `","items":[{"description":"  ","quantity":1,"unitPrice":1}]}`, http.StatusBadRequest},
		{"negative quantity", `{"clientId":"` + clientID + `","items":[{"description":"x","quantity":-1,"unitPrice":1}]}`, http.StatusBadRequest},
		{"negative tax rate", `{"clientId":"` + clientID + `","taxRate":-0.1,"items":[{"description":"x","quantity":1,"unitPrice":1}]}`, http.StatusBadRequest},
		{"unknown client", `{"clientId":"missing","items":[{"description":"x","quantity":1,"unitPrice":1}]}`, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tc.wantCode, rec.Body.String())
			}
		})
	}
}

func TestListOrdersStatusFilter(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	seedOrder(t, st, clientID, enum.OrderStatusPending)
	seedOrder(t, st, clientID, enum.OrderStatusCompleted)
	r := ordersRouter(t, st)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=Completed", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp []struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].Status != enum.OrderStatusCompleted {
		t.Errorf("filtered list: %+v", resp)
	}
}

func TestProcessOrderEndpoint(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	orderID := seedOrder(t, st, clientID, enum.OrderStatusPending)
	r := ordersRouter(t, st)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/process", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Invoice struct {
			ID            string `json:"id"`
			InvoiceNumber string `json:"invoiceNumber"`
			OrderID       string `json:"orderId"`
			Status        string `json:"status"`
		} `json:"invoice"`
		Document struct {
			Filename string `json:"filename"`
			Pages    int    `json:"pages"`
		} `json:"document"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Invoice.ID == "" || resp.Invoice.OrderID != orderID {
		t.Errorf("invoice: %+v", resp.Invoice)
	}
	if resp.Invoice.Status != enum.InvoiceStatusPending {
		t.Errorf("invoice status: got %s, want Pending", resp.Invoice.Status)
	}
	if resp.Document.Filename != resp.Invoice.InvoiceNumber+".pdf" {
		t.Errorf("document filename: got %s", resp.Document.Filename)
	}
	if resp.Document.Pages != 1 {
		t.Errorf("document pages: got %d, want 1", resp.Document.Pages)
	}

	// The order is completed and linked.
	doc, err := st.GetByID(context.Background(), store.CollectionOrders, orderID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	updated := model.OrderFromDoc(doc)
	if updated.Status != enum.OrderStatusCompleted {
		t.Errorf("order status: got %s, want Completed", updated.Status)
	}
	if updated.InvoiceID != resp.Invoice.ID {
		t.Errorf("order invoiceId: got %s, want %s", updated.InvoiceID, resp.Invoice.ID)
	}
}

func TestProcessOrderAlreadyCompleted(t *testing.T) {
	st := store.NewMemory()
	clientID := seedClient(t, st, "ACME-001", "Acme Corporation")
	orderID := seedOrder(t, st, clientID, enum.OrderStatusCompleted)
	r := ordersRouter(t, st)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/process", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409 (%s)", rec.Code, rec.Body.String())
	}
}

func TestProcessOrderNotFound(t *testing.T) {
	st := store.NewMemory()
	r := ordersRouter(t, st)

	req := httptest.NewRequest(http.MethodPost, "/orders/missing/process", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}
