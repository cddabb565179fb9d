package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs unit tests, seeding, and
// credential-less development runs. Documents are deep-copied on the way
// in and out, so callers can never mutate stored state through a held
// reference.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	now         func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]map[string]any),
		now:         time.Now,
	}
}

// SetClock overrides the timestamp source. Tests only.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Insert implements Store.
func (m *Memory) Insert(_ context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}

	id := uuid.NewString()
	doc := m.resolveLocked(fields)
	if _, ok := doc["createdAt"]; !ok {
		doc["createdAt"] = m.now()
	}
	if _, ok := doc["updatedAt"]; !ok {
		doc["updatedAt"] = m.now()
	}
	m.collections[collection][id] = doc
	return id, nil
}

// GetAll implements Store.
func (m *Memory) GetAll(_ context.Context, collection, orderBy string, desc bool) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0, len(m.collections[collection]))
	for id, data := range m.collections[collection] {
		docs = append(docs, Document{ID: id, Data: copyMap(data)})
	}

	if orderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			less := lessValue(docs[i].Data[orderBy], docs[j].Data[orderBy])
			if desc {
				return !less && !reflect.DeepEqual(docs[i].Data[orderBy], docs[j].Data[orderBy])
			}
			return less
		})
	}
	return docs, nil
}

// GetWhere implements Store.
func (m *Memory) GetWhere(_ context.Context, collection string, filters ...Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []Document
	for id, data := range m.collections[collection] {
		match := true
		for _, f := range filters {
			if !reflect.DeepEqual(data[f.Field], f.Value) {
				match = false
				break
			}
		}
		if match {
			docs = append(docs, Document{ID: id, Data: copyMap(data)})
		}
	}
	return docs, nil
}

// GetByID implements Store.
func (m *Memory) GetByID(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: copyMap(data)}, nil
}

// UpdateFields implements Store.
func (m *Memory) UpdateFields(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range m.resolveLocked(fields) {
		data[k] = v
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

// resolveLocked deep-copies fields, replacing ServerTimestamp sentinels
// with the store clock. Caller holds the lock.
func (m *Memory) resolveLocked(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = m.now()
			continue
		}
		out[k] = copyValue(v)
	}
	return out
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// lessValue orders the handful of field types the app sorts on.
func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	}
	return false
}
