package ports

import (
	"bytes"
	"context"
	"encoding/json"
)

// Document is a stored JSON object and its store-assigned id.
type Document struct {
	ID   string
	Data []byte
}

// Filter matches documents whose top-level JSON field equals Value.
type Filter struct {
	Field string
	Value string
}

// DocumentStore persists JSON documents grouped in collections.
type DocumentStore interface {
	// Get returns the document with id. Missing documents return an error
	// wrapping domain.ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Query returns the documents matching filter in insertion order.
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Count returns the number of documents in collection.
	Count(ctx context.Context, collection string) (int64, error)

	// Create stores data under a new id and returns it.
	Create(ctx context.Context, collection string, data []byte) (string, error)

	// Update replaces the document with id.
	Update(ctx context.Context, collection, id string, data []byte) error
}

// Transactor is implemented by stores that can run several calls
// atomically. fn receives a store bound to the transaction; returning an
// error rolls everything back.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx DocumentStore) error) error
}

// Counter is implemented by stores with atomic named counters. seed is
// called once, when the counter does not exist yet, to obtain its current
// value.
type Counter interface {
	Increment(ctx context.Context, name string, seed func(ctx context.Context) (int64, error)) (int64, error)
}

// Match reports whether the top-level field of a JSON object equals
// f.Value. Non-string values compare by their JSON text. An empty Field
// matches everything.
func (f Filter) Match(data []byte) (bool, error) {
	if f.Field == "" {
		return true, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return false, err
	}
	raw, ok := obj[f.Field]
	if !ok {
		return false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == f.Value, nil
	}
	return string(bytes.TrimSpace(raw)) == f.Value, nil
}
