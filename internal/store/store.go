package store

import (
	"context"
	"errors"
)

// Collection names. All persistence goes through these.
const (
	CollectionClients  = "clients"
	CollectionOrders   = "orders"
	CollectionInvoices = "invoices"
	CollectionUsers    = "users"
)

// ErrNotFound is returned by GetByID when no document has the given id.
var ErrNotFound = errors.New("document not found")

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp marks a field whose value is assigned by the store
// backend at write time. Backends replace it with their own notion of
// "now" (Firestore's server timestamp, the memory store's clock).
var ServerTimestamp = serverTimestamp{}

// Document is one record from a collection: its store-assigned id plus
// the raw field map. Field values are backend-native (string, float64,
// int64, bool, time.Time, []any, map[string]any); the model package owns
// turning them into typed entities.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is a single equality condition for GetWhere.
type Filter struct {
	Field string
	Value any
}

// Where is shorthand for building a Filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is the document-database contract the application depends on.
// It deliberately mirrors the subset of Firestore the original app used:
// insert with server timestamps, full-collection reads with an optional
// order-by, equality queries, point reads, partial updates, deletes.
type Store interface {
	// Insert adds a document and returns its assigned id. Fields valued
	// ServerTimestamp are resolved by the backend.
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)

	// GetAll returns every document in the collection. When orderBy is
	// non-empty, results are sorted by that field, descending if desc.
	GetAll(ctx context.Context, collection, orderBy string, desc bool) ([]Document, error)

	// GetWhere returns the documents matching every filter (AND).
	GetWhere(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// GetByID returns one document or ErrNotFound.
	GetByID(ctx context.Context, collection, id string) (Document, error)

	// UpdateFields merges the given fields into an existing document.
	// Fields valued ServerTimestamp are resolved by the backend.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an
	// error (blind delete, matching the original app).
	Delete(ctx context.Context, collection, id string) error
}
