// Package registrations declares the repository contract for the canonical
// registration records submitted by agents.
package registrations

import (
	"context"
	"encoding/json"
)

// Record is one canonical registration row. Payload carries the full
// registration document as submitted by the agent.
type Record struct {
	ID             int64
	Kind           string
	Payload        json.RawMessage
	IdempotencyKey string
}

type Repository interface {
	// Create inserts a registration and returns its server-assigned ID. When
	// a row with the same idempotency key already exists, the existing row's
	// ID is returned instead and no new row is created.
	Create(ctx context.Context, rec *Record) (int64, error)

	List(ctx context.Context) ([]*Record, error)
}
