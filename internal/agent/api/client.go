// Package api implements the agent's client for the fleet REST API.
package api

import (
	"context"

	"github.com/danielmvs/fleetsync/internal/models"
)

// Client is the agent's view of the server of record. The zero-UI rule
// applies: implementations return errors and data, never render anything.
type Client interface {
	// Ping checks server reachability; the connectivity watcher probes it.
	Ping(ctx context.Context) error

	// Login exchanges credentials for an access/refresh token pair that the
	// client keeps for subsequent calls.
	Login(ctx context.Context, username, password string) error

	// List fetches a reference-entity collection, returning the raw JSON
	// array body on a 2xx response.
	List(ctx context.Context, category models.Category) ([]byte, error)

	// CreateRegistration submits a registration record. The idempotency key
	// must be the one frozen with the queued record so retries cannot
	// double-insert. Returns the server-confirmed record (positive ID).
	CreateRegistration(ctx context.Context, r *models.Registration, idempotencyKey string) (*models.Registration, error)

	// NewUploadURL asks the server for a presigned PUT URL for one photo.
	NewUploadURL(ctx context.Context) (key string, url string, err error)

	// UploadImage PUTs a photo blob to a presigned URL.
	UploadImage(ctx context.Context, url string, contentType string, data []byte) error
}
