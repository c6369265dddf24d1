// Package images declares the repository contract for tracking inspection
// image keys whose blobs live in object storage.
package images

import "context"

type Repository interface {
	// Create records a storage key issued through a presigned upload URL.
	Create(ctx context.Context, key string) error
}
