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

	"github.com/bwmarrin/snowflake"
	"github.com/factura-admin/api/internal/billing"
	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/service"
	"github.com/factura-admin/api/internal/store"
	"github.com/factura-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStore defines the store methods needed by order handlers.
// Satisfied by any store.Store; narrow interface for testability.
type OrderStore interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	GetAll(ctx context.Context, collection, orderBy string, desc bool) ([]store.Document, error)
	GetWhere(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error)
	GetByID(ctx context.Context, collection, id string) (store.Document, error)
}

// OrderProcessor runs the order -> invoice transition.
// Satisfied by *service.InvoiceService.
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, order model.Order, client model.Client) (*service.ProcessResult, error)
}

// OrderHandler handles order endpoints, including processing an order
// into an invoice.
type OrderHandler struct {
	store     OrderStore
	processor OrderProcessor
	node      *snowflake.Node
	hub       *ws.Hub
}

// NewOrderHandler creates a new OrderHandler. hub may be nil.
func NewOrderHandler(store OrderStore, processor OrderProcessor, node *snowflake.Node, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{store: store, processor: processor, node: node, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/process", h.Process)
	})
}

// --- Request / Response types ---

type createOrderItemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type createOrderRequest struct {
	ClientID string                   `json:"clientId"`
	TaxRate  *float64                 `json:"taxRate"`
	Items    []createOrderItemRequest `json:"items"`
}

type lineItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

type orderResponse struct {
	ID                  string             `json:"id"`
	ClientID            string             `json:"clientId"`
	ClientReferenceCode string             `json:"clientReferenceCode"`
	ClientName          string             `json:"clientName"`
	OrderNumber         string             `json:"orderNumber"`
	Items               []lineItemResponse `json:"items"`
	Subtotal            string             `json:"subtotal"`
	TaxRate             string             `json:"taxRate"`
	TaxAmount           string             `json:"taxAmount"`
	TotalAmount         string             `json:"totalAmount"`
	Status              string             `json:"status"`
	InvoiceID           string             `json:"invoiceId,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func toLineItemResponses(items []model.LineItem) []lineItemResponse {
	resp := make([]lineItemResponse, len(items))
	for i, item := range items {
		resp[i] = lineItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TotalPrice:  item.TotalPrice.StringFixed(2),
		}
	}
	return resp
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID,
		ClientID:            o.ClientID,
		ClientReferenceCode: o.ClientReferenceCode,
		ClientName:          o.ClientName,
		OrderNumber:         o.OrderNumber,
		Items:               toLineItemResponses(o.Items),
		Subtotal:            o.Subtotal.StringFixed(2),
		TaxRate:             o.TaxRate.String(),
		TaxAmount:           o.TaxAmount.StringFixed(2),
		TotalAmount:         o.TotalAmount.StringFixed(2),
		Status:              o.Status,
		InvoiceID:           o.InvoiceID,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

// --- Handlers ---

// List returns all orders, newest first, optionally filtered by status.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.GetAll(r.Context(), store.CollectionOrders, "createdAt", true)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !enum.ValidOrderStatus(statusFilter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}

	resp := make([]orderResponse, 0, len(docs))
	for _, doc := range docs {
		o := model.OrderFromDoc(doc)
		if statusFilter != "" && o.Status != statusFilter {
			continue
		}
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order by ID.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetByID(r.Context(), store.CollectionOrders, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(model.OrderFromDoc(doc)))
}

// Create validates a new order, computes its financial snapshot
// server-side, and persists it in Pending state. The tax rate defaults
// to 20% when the request omits it.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.ClientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "clientId is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	items := make([]model.LineItem, len(req.Items))
	for i, item := range req.Items {
		if strings.TrimSpace(item.Description) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("items[%d]: description is required", i)})
			return
		}
		if item.Quantity < 0 || item.UnitPrice < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("items[%d]: quantity and unitPrice must be non-negative", i)})
			return
		}
		li := model.LineItem{
			ID:          uuid.NewString(),
			Description: item.Description,
			Quantity:    decimal.NewFromFloat(item.Quantity),
			UnitPrice:   decimal.NewFromFloat(item.UnitPrice),
		}
		li.TotalPrice = billing.LineTotal(li)
		items[i] = li
	}

	taxRate := model.DefaultTaxRate
	if req.TaxRate != nil {
		if *req.TaxRate < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "taxRate must be non-negative"})
			return
		}
		taxRate = decimal.NewFromFloat(*req.TaxRate)
	}

	clientDoc, err := h.store.GetByID(r.Context(), store.CollectionClients, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client for order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	client := model.ClientFromDoc(clientDoc)

	totals := billing.ComputeTotals(items, taxRate)

	order := model.Order{
		ClientID:            client.ID,
		ClientReferenceCode: client.ReferenceCode,
		ClientName:          client.Name,
		OrderNumber:         fmt.Sprintf("ORD-%s", strings.ToUpper(h.node.Generate().Base36())),
		Items:               items,
		Subtotal:            totals.Subtotal,
		TaxRate:             taxRate,
		TaxAmount:           totals.TaxAmount,
		TotalAmount:         totals.TotalAmount,
		Status:              enum.OrderStatusPending,
	}

	fields := order.Fields()
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	id, err := h.store.Insert(r.Context(), store.CollectionOrders, fields)
	if err != nil {
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	order.ID = id

	h.hub.Broadcast(ws.NewEvent(ws.EventOrderCreated, map[string]string{"id": id, "clientId": client.ID}))
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Process converts a Pending order into an invoice: persist the invoice,
// mark the order Completed with the invoice id, render the document.
// Partial failures report exactly which step failed; committed writes
// are never rolled back.
func (h *OrderHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	orderDoc, err := h.store.GetByID(r.Context(), store.CollectionOrders, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for processing: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	order := model.OrderFromDoc(orderDoc)

	clientDoc, err := h.store.GetByID(r.Context(), store.CollectionClients, order.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client for processing: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	client := model.ClientFromDoc(clientDoc)

	result, err := h.processor.ProcessOrder(r.Context(), order, client)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotPending):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order is not pending"})
		case errors.Is(err, billing.ErrNoLineItems):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order has no line items"})
		case errors.Is(err, service.ErrLinkOrder):
			// Invoice persisted, order not linked: orphan invoice.
			log.Printf("ERROR: process order %s: %v", id, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":     "invoice created but order update failed",
				"invoiceId": result.Invoice.ID,
			})
		case errors.Is(err, service.ErrRender):
			// Invoice persisted and order completed; only the document
			// failed. No file is delivered.
			log.Printf("ERROR: process order %s: %v", id, err)
			h.broadcastProcessed(id, result.Invoice.ID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":     "invoice document rendering failed",
				"invoiceId": result.Invoice.ID,
			})
		default:
			log.Printf("ERROR: process order %s: %v", id, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.broadcastProcessed(id, result.Invoice.ID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"invoice": toInvoiceResponse(result.Invoice),
		"document": map[string]any{
			"filename": result.Document.Filename,
			"pages":    result.Document.Pages,
		},
	})
}

func (h *OrderHandler) broadcastProcessed(orderID, invoiceID string) {
	h.hub.Broadcast(ws.NewEvent(ws.EventOrderCompleted, map[string]string{"id": orderID, "invoiceId": invoiceID}))
	h.hub.Broadcast(ws.NewEvent(ws.EventInvoiceCreated, map[string]string{"id": invoiceID, "orderId": orderID}))
}
