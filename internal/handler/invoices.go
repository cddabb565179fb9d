package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/pdf"
	"github.com/factura-admin/api/internal/store"
	"github.com/factura-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
)

// InvoiceStore defines the store methods needed by invoice handlers.
// Satisfied by any store.Store; narrow interface for testability.
type InvoiceStore interface {
	GetAll(ctx context.Context, collection, orderBy string, desc bool) ([]store.Document, error)
	GetByID(ctx context.Context, collection, id string) (store.Document, error)
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// InvoiceHandler handles invoice endpoints, including on-demand document
// rendering.
type InvoiceHandler struct {
	store  InvoiceStore
	render func(model.Invoice) (*pdf.Document, error)
	hub    *ws.Hub
}

// NewInvoiceHandler creates a new InvoiceHandler. A nil render falls back
// to the PDF renderer; hub may be nil.
func NewInvoiceHandler(store InvoiceStore, render func(model.Invoice) (*pdf.Document, error), hub *ws.Hub) *InvoiceHandler {
	if render == nil {
		render = pdf.RenderInvoice
	}
	return &InvoiceHandler{store: store, render: render, hub: hub}
}

// RegisterRoutes registers invoice endpoints on the given Chi router.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/status", h.UpdateStatus)
		r.Delete("/", h.Delete)
		r.Get("/document", h.Document)
	})
}

// --- Request / Response types ---

type updateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

type invoiceClientResponse struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

type invoiceResponse struct {
	ID                  string                `json:"id"`
	InvoiceNumber       string                `json:"invoiceNumber"`
	OrderID             string                `json:"orderId"`
	ClientID            string                `json:"clientId"`
	ClientReferenceCode string                `json:"clientReferenceCode"`
	Client              invoiceClientResponse `json:"client"`
	Items               []lineItemResponse    `json:"items"`
	Subtotal            string                `json:"subtotal"`
	TaxRate             string                `json:"taxRate"`
	TaxAmount           string                `json:"taxAmount"`
	TotalAmount         string                `json:"totalAmount"`
	IssueDate           time.Time             `json:"issueDate"`
	DueDate             time.Time             `json:"dueDate"`
	Status              string                `json:"status"`
	Notes               string                `json:"notes,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

func toInvoiceResponse(inv model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                  inv.ID,
		InvoiceNumber:       inv.InvoiceNumber,
		OrderID:             inv.OrderID,
		ClientID:            inv.ClientID,
		ClientReferenceCode: inv.ClientReferenceCode,
		Client: invoiceClientResponse{
			Name:     inv.Client.Name,
			Email:    inv.Client.Email,
			Phone:    inv.Client.Phone,
			Location: inv.Client.Location,
		},
		Items:       toLineItemResponses(inv.Items),
		Subtotal:    inv.Subtotal.StringFixed(2),
		TaxRate:     inv.TaxRate.String(),
		TaxAmount:   inv.TaxAmount.StringFixed(2),
		TotalAmount: inv.TotalAmount.StringFixed(2),
		IssueDate:   inv.IssueDate,
		DueDate:     inv.DueDate,
		Status:      inv.Status,
		Notes:       inv.Notes,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

// --- Handlers ---

// List returns all invoices, newest first. Supports ?status= and ?ref=
// (case-insensitive substring match on the client reference code, the
// way the dashboard search box works).
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.GetAll(r.Context(), store.CollectionInvoices, "createdAt", true)
	if err != nil {
		log.Printf("ERROR: list invoices: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !enum.ValidInvoiceStatus(statusFilter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}
	refFilter := strings.ToLower(r.URL.Query().Get("ref"))

	resp := make([]invoiceResponse, 0, len(docs))
	for _, doc := range docs {
		inv := model.InvoiceFromDoc(doc)
		if statusFilter != "" && inv.Status != statusFilter {
			continue
		}
		if refFilter != "" && !strings.Contains(strings.ToLower(inv.ClientReferenceCode), refFilter) {
			continue
		}
		resp = append(resp, toInvoiceResponse(inv))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single invoice by ID.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetByID(r.Context(), store.CollectionInvoices, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		log.Printf("ERROR: get invoice: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(model.InvoiceFromDoc(doc)))
}

// UpdateStatus sets an invoice's payment status (Pending, Paid, Overdue).
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateInvoiceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.ValidInvoiceStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if _, err := h.store.GetByID(r.Context(), store.CollectionInvoices, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		log.Printf("ERROR: get invoice for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	err := h.store.UpdateFields(r.Context(), store.CollectionInvoices, id, map[string]any{
		"status":    req.Status,
		"updatedAt": store.ServerTimestamp,
	})
	if err != nil {
		log.Printf("ERROR: update invoice status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	doc, err := h.store.GetByID(r.Context(), store.CollectionInvoices, id)
	if err != nil {
		log.Printf("ERROR: reload invoice after status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.hub.Broadcast(ws.NewEvent(ws.EventInvoiceStatusChanged, map[string]string{"id": id, "status": req.Status}))
	writeJSON(w, http.StatusOK, toInvoiceResponse(model.InvoiceFromDoc(doc)))
}

// Delete removes an invoice. The source order is left untouched: its
// status stays Completed and its invoiceId keeps pointing at the deleted
// document.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), store.CollectionInvoices, id); err != nil {
		log.Printf("ERROR: delete invoice: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.hub.Broadcast(ws.NewEvent(ws.EventInvoiceDeleted, map[string]string{"id": id}))
	w.WriteHeader(http.StatusNoContent)
}

// Document renders the invoice's PDF and streams it as a download.
// Documents are never stored; each request renders from the invoice
// record.
func (h *InvoiceHandler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetByID(r.Context(), store.CollectionInvoices, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		log.Printf("ERROR: get invoice for document: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rendered, err := h.render(model.InvoiceFromDoc(doc))
	if err != nil {
		log.Printf("ERROR: render invoice document: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "document rendering failed"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rendered.Data); err != nil {
		log.Printf("ERROR: write invoice document: %v", err)
	}
}
