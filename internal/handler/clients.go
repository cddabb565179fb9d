package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/model"
	"github.com/factura-admin/api/internal/store"
	"github.com/factura-admin/api/internal/ws"
	"github.com/go-chi/chi/v5"
)

// ClientStore defines the store methods needed by client handlers.
// Satisfied by any store.Store; narrow interface for testability.
type ClientStore interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	GetAll(ctx context.Context, collection, orderBy string, desc bool) ([]store.Document, error)
	GetWhere(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error)
	GetByID(ctx context.Context, collection, id string) (store.Document, error)
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// ClientHandler handles client CRUD endpoints.
type ClientHandler struct {
	store ClientStore
	hub   *ws.Hub
}

// NewClientHandler creates a new ClientHandler. hub may be nil.
func NewClientHandler(store ClientStore, hub *ws.Hub) *ClientHandler {
	return &ClientHandler{store: store, hub: hub}
}

// RegisterRoutes registers client CRUD endpoints on the given Chi router.
func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/orders", h.Orders)
	})
}

// --- Request / Response types ---

type clientRequest struct {
	ReferenceCode string `json:"referenceCode"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Location      string `json:"location"`
	Status        string `json:"status"`
}

type clientResponse struct {
	ID                 string    `json:"id"`
	ReferenceCode      string    `json:"referenceCode"`
	Name               string    `json:"name"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Location           string    `json:"location,omitempty"`
	Status             string    `json:"status"`
	PendingOrdersCount *int      `json:"pendingOrdersCount,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toClientResponse(c model.Client) clientResponse {
	return clientResponse{
		ID:            c.ID,
		ReferenceCode: c.ReferenceCode,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Location:      c.Location,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// --- Handlers ---

// List returns all clients, newest first, each with its count of
// pending orders (the dashboard badges clients that still need
// processing).
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.GetAll(r.Context(), store.CollectionClients, "createdAt", true)
	if err != nil {
		log.Printf("ERROR: list clients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !enum.ValidClientStatus(statusFilter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}

	resp := make([]clientResponse, 0, len(docs))
	for _, doc := range docs {
		c := model.ClientFromDoc(doc)
		if statusFilter != "" && c.Status != statusFilter {
			continue
		}

		pending, err := h.store.GetWhere(r.Context(), store.CollectionOrders,
			store.Where("clientId", c.ID),
			store.Where("status", enum.OrderStatusPending),
		)
		if err != nil {
			log.Printf("ERROR: pending orders count for client %s: %v", c.ID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		cr := toClientResponse(c)
		count := len(pending)
		cr.PendingOrdersCount = &count
		resp = append(resp, cr)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single client by ID.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetByID(r.Context(), store.CollectionClients, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(model.ClientFromDoc(doc)))
}

// Create adds a new client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.ReferenceCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "referenceCode is required"})
		return
	}
	if req.Status == "" {
		req.Status = enum.ClientStatusActive
	}
	if !enum.ValidClientStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	client := model.Client{
		ReferenceCode: req.ReferenceCode,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Location:      req.Location,
		Status:        req.Status,
	}

	fields := client.Fields()
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	id, err := h.store.Insert(r.Context(), store.CollectionClients, fields)
	if err != nil {
		log.Printf("ERROR: create client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	client.ID = id

	h.hub.Broadcast(ws.NewEvent(ws.EventClientCreated, map[string]string{"id": id}))
	writeJSON(w, http.StatusCreated, toClientResponse(client))
}

// Update replaces a client's editable fields.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.ReferenceCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "referenceCode is required"})
		return
	}
	if req.Status != "" && !enum.ValidClientStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if _, err := h.store.GetByID(r.Context(), store.CollectionClients, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client for update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	fields := map[string]any{
		"referenceCode": req.ReferenceCode,
		"name":          req.Name,
		"email":         req.Email,
		"phone":         req.Phone,
		"location":      req.Location,
		"updatedAt":     store.ServerTimestamp,
	}
	if req.Status != "" {
		fields["status"] = req.Status
	}

	if err := h.store.UpdateFields(r.Context(), store.CollectionClients, id, fields); err != nil {
		log.Printf("ERROR: update client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	doc, err := h.store.GetByID(r.Context(), store.CollectionClients, id)
	if err != nil {
		log.Printf("ERROR: reload client after update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(model.ClientFromDoc(doc)))
}

// Delete removes a client. Orders and invoices referencing it are left
// in place; invoices carry their own client snapshot.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), store.CollectionClients, id); err != nil {
		log.Printf("ERROR: delete client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.hub.Broadcast(ws.NewEvent(ws.EventClientDeleted, map[string]string{"id": id}))
	w.WriteHeader(http.StatusNoContent)
}

// Orders returns the orders belonging to a client, optionally filtered
// by status (?status=Pending lists what can still be processed).
func (h *ClientHandler) Orders(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetByID(r.Context(), store.CollectionClients, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client for orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	filters := []store.Filter{store.Where("clientId", id)}
	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.ValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		filters = append(filters, store.Where("status", s))
	}

	docs, err := h.store.GetWhere(r.Context(), store.CollectionOrders, filters...)
	if err != nil {
		log.Printf("ERROR: list client orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toOrderResponse(model.OrderFromDoc(doc)))
	}

	writeJSON(w, http.StatusOK, resp)
}
