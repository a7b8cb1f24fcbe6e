// Package store archives computed layouts so they can be fetched again by id.
//
// The HTTP API records every successful layout it computes. Two backends are
// provided: [MemoryStore] for a single process and [MongoStore] for a
// persistent archive shared by several instances.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is one archived layout.
type Record struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	GraphHash string          `json:"graph_hash"`
	Algorithm string          `json:"algorithm,omitempty"`
	Graph     json.RawMessage `json:"graph"`
	Layout    json.RawMessage `json:"layout"`
}

// Store persists records.
type Store interface {
	// Put saves r. An empty ID is replaced by a new one and an empty
	// CreatedAt by the current time, at millisecond precision. The saved
	// record is returned.
	Put(ctx context.Context, r Record) (Record, error)
	// Get returns the record with the given id or a NOT_FOUND error.
	Get(ctx context.Context, id string) (Record, error)
	Close() error
}

// NewID returns a random record id.
func NewID() string {
	return uuid.NewString()
}

func prepare(r Record) Record {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	return r
}
