// Package model defines the typed entities and the single place where
// raw store documents become those entities. Defaults for absent fields
// (the original app's fallback operators) live here, at the boundary,
// not in business logic.
package model

import (
	"time"

	"github.com/factura-admin/api/internal/enum"
	"github.com/factura-admin/api/internal/store"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied when a stored order carries no taxRate.
var DefaultTaxRate = decimal.NewFromFloat(0.2)

// LineItem is one billable row on an order or invoice. TotalPrice is
// always derived from Quantity and UnitPrice, never edited directly.
type LineItem struct {
	ID          string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Client is a billable customer. ReferenceCode is the unique business
// identifier shown on documents.
type Client struct {
	ID            string
	ReferenceCode string
	Name          string
	Email         string
	Phone         string
	Location      string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order is a client's order. The monetary fields are a snapshot computed
// when the order was written; invoices copy them verbatim.
type Order struct {
	ID                  string
	ClientID            string
	ClientReferenceCode string
	ClientName          string
	OrderNumber         string
	Items               []LineItem
	Subtotal            decimal.Decimal
	TaxRate             decimal.Decimal
	TaxAmount           decimal.Decimal
	TotalAmount         decimal.Decimal
	Status              string
	InvoiceID           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// InvoiceClient is the value snapshot of client contact data embedded in
// an invoice, so historical invoices survive later client edits.
type InvoiceClient struct {
	Name     string
	Email    string
	Phone    string
	Location string
}

// Invoice is a durable billing record derived from an order. It owns
// copies of its client block and items; nothing in it is a live
// reference.
type Invoice struct {
	ID                  string
	InvoiceNumber       string
	OrderID             string
	ClientID            string
	ClientReferenceCode string
	Client              InvoiceClient
	Items               []LineItem
	Subtotal            decimal.Decimal
	TaxRate             decimal.Decimal
	TaxAmount           decimal.Decimal
	TotalAmount         decimal.Decimal
	IssueDate           time.Time
	DueDate             time.Time
	Status              string
	Notes               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// User is an admin account for the dashboard.
type User struct {
	ID             string
	Email          string
	FullName       string
	HashedPassword string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CopyItems returns an independent copy of a line-item slice.
func CopyItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// --- Document -> entity ---

// ClientFromDoc maps a raw clients document to a Client.
func ClientFromDoc(d store.Document) Client {
	return Client{
		ID:            d.ID,
		ReferenceCode: docString(d.Data, "referenceCode"),
		Name:          docString(d.Data, "name"),
		Email:         docString(d.Data, "email"),
		Phone:         docString(d.Data, "phone"),
		Location:      docString(d.Data, "location"),
		Status:        docStringDefault(d.Data, "status", enum.ClientStatusActive),
		CreatedAt:     docTime(d.Data, "createdAt"),
		UpdatedAt:     docTime(d.Data, "updatedAt"),
	}
}

// OrderFromDoc maps a raw orders document to an Order, applying the
// documented defaults: empty items, taxRate 0.2 when absent, Pending
// status.
func OrderFromDoc(d store.Document) Order {
	o := Order{
		ID:                  d.ID,
		ClientID:            docString(d.Data, "clientId"),
		ClientReferenceCode: docString(d.Data, "clientReferenceCode"),
		ClientName:          docString(d.Data, "clientName"),
		OrderNumber:         docString(d.Data, "orderNumber"),
		Items:               docItems(d.Data, "items"),
		Subtotal:            docDecimal(d.Data, "subtotal"),
		TaxAmount:           docDecimal(d.Data, "taxAmount"),
		TotalAmount:         docDecimal(d.Data, "totalAmount"),
		Status:              docStringDefault(d.Data, "status", enum.OrderStatusPending),
		InvoiceID:           docString(d.Data, "invoiceId"),
		CreatedAt:           docTime(d.Data, "createdAt"),
		UpdatedAt:           docTime(d.Data, "updatedAt"),
	}
	if _, ok := d.Data["taxRate"]; ok {
		o.TaxRate = docDecimal(d.Data, "taxRate")
	} else {
		o.TaxRate = DefaultTaxRate
	}
	return o
}

// InvoiceFromDoc maps a raw invoices document to an Invoice.
func InvoiceFromDoc(d store.Document) Invoice {
	inv := Invoice{
		ID:                  d.ID,
		InvoiceNumber:       docString(d.Data, "invoiceNumber"),
		OrderID:             docString(d.Data, "orderId"),
		ClientID:            docString(d.Data, "clientId"),
		ClientReferenceCode: docString(d.Data, "clientReferenceCode"),
		Items:               docItems(d.Data, "items"),
		Subtotal:            docDecimal(d.Data, "subtotal"),
		TaxRate:             docDecimal(d.Data, "taxRate"),
		TaxAmount:           docDecimal(d.Data, "taxAmount"),
		TotalAmount:         docDecimal(d.Data, "totalAmount"),
		IssueDate:           docTime(d.Data, "issueDate"),
		DueDate:             docTime(d.Data, "dueDate"),
		Status:              docStringDefault(d.Data, "status", enum.InvoiceStatusPending),
		Notes:               docString(d.Data, "notes"),
		CreatedAt:           docTime(d.Data, "createdAt"),
		UpdatedAt:           docTime(d.Data, "updatedAt"),
	}
	if block, ok := d.Data["client"].(map[string]any); ok {
		inv.Client = InvoiceClient{
			Name:     docString(block, "name"),
			Email:    docString(block, "email"),
			Phone:    docString(block, "phone"),
			Location: docString(block, "location"),
		}
	}
	return inv
}

// UserFromDoc maps a raw users document to a User.
func UserFromDoc(d store.Document) User {
	return User{
		ID:             d.ID,
		Email:          docString(d.Data, "email"),
		FullName:       docString(d.Data, "fullName"),
		HashedPassword: docString(d.Data, "hashedPassword"),
		CreatedAt:      docTime(d.Data, "createdAt"),
		UpdatedAt:      docTime(d.Data, "updatedAt"),
	}
}

// --- Entity -> document fields ---
//
// Fields methods exclude the id and the createdAt/updatedAt pair; callers
// add store.ServerTimestamp for those on insert/update.

// Fields returns the storable field map for a client.
func (c Client) Fields() map[string]any {
	return map[string]any{
		"referenceCode": c.ReferenceCode,
		"name":          c.Name,
		"email":         c.Email,
		"phone":         c.Phone,
		"location":      c.Location,
		"status":        c.Status,
	}
}

// Fields returns the storable field map for an order. Money is written
// as plain numbers, matching what the original frontend stored.
func (o Order) Fields() map[string]any {
	return map[string]any{
		"clientId":            o.ClientID,
		"clientReferenceCode": o.ClientReferenceCode,
		"clientName":          o.ClientName,
		"orderNumber":         o.OrderNumber,
		"items":               itemsToDocs(o.Items),
		"subtotal":            o.Subtotal.InexactFloat64(),
		"taxRate":             o.TaxRate.InexactFloat64(),
		"taxAmount":           o.TaxAmount.InexactFloat64(),
		"totalAmount":         o.TotalAmount.InexactFloat64(),
		"status":              o.Status,
		"invoiceId":           o.InvoiceID,
	}
}

// Fields returns the storable field map for an invoice.
func (i Invoice) Fields() map[string]any {
	return map[string]any{
		"invoiceNumber":       i.InvoiceNumber,
		"orderId":             i.OrderID,
		"clientId":            i.ClientID,
		"clientReferenceCode": i.ClientReferenceCode,
		"client": map[string]any{
			"name":     i.Client.Name,
			"email":    i.Client.Email,
			"phone":    i.Client.Phone,
			"location": i.Client.Location,
		},
		"items":       itemsToDocs(i.Items),
		"subtotal":    i.Subtotal.InexactFloat64(),
		"taxRate":     i.TaxRate.InexactFloat64(),
		"taxAmount":   i.TaxAmount.InexactFloat64(),
		"totalAmount": i.TotalAmount.InexactFloat64(),
		"issueDate":   i.IssueDate,
		"dueDate":     i.DueDate,
		"status":      i.Status,
		"notes":       i.Notes,
	}
}

// Fields returns the storable field map for a user.
func (u User) Fields() map[string]any {
	return map[string]any{
		"email":          u.Email,
		"fullName":       u.FullName,
		"hashedPassword": u.HashedPassword,
	}
}

func itemsToDocs(items []LineItem) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{
			"id":          it.ID,
			"description": it.Description,
			"quantity":    it.Quantity.InexactFloat64(),
			"unitPrice":   it.UnitPrice.InexactFloat64(),
			"totalPrice":  it.TotalPrice.InexactFloat64(),
		}
	}
	return out
}

// --- Coercion helpers ---

func docString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func docStringDefault(data map[string]any, key, def string) string {
	if s, ok := data[key].(string); ok && s != "" {
		return s
	}
	return def
}

// docDecimal reads a numeric field, treating missing or non-numeric
// values as zero. Firestore hands back float64 or int64; older documents
// occasionally stored numbers as strings.
func docDecimal(data map[string]any, key string) decimal.Decimal {
	switch v := data[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// docTime reads a timestamp field. The original app wrote a mix of
// server timestamps (time.Time after decoding) and ISO-8601 strings;
// both round-trip here.
func docTime(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func docItems(data map[string]any, key string) []LineItem {
	raw, ok := data[key].([]any)
	if !ok {
		return []LineItem{}
	}
	items := make([]LineItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, LineItem{
			ID:          docString(m, "id"),
			Description: docString(m, "description"),
			Quantity:    docDecimal(m, "quantity"),
			UnitPrice:   docDecimal(m, "unitPrice"),
			TotalPrice:  docDecimal(m, "totalPrice"),
		})
	}
	return items
}
