// Package fetch implements the network-or-cache read path for reference
// entities: while online the server is always the primary source and every
// successful read refreshes the local snapshot; the store is a strict
// fallback for offline operation and transient failures.
package fetch

import (
	"context"
	"encoding/json"

	"github.com/danielmvs/fleetsync/internal/agent/api"
	"github.com/danielmvs/fleetsync/internal/agent/netwatch"
	"github.com/danielmvs/fleetsync/internal/agent/store"
	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
)

// Source tells the UI layer where a result came from, so it can announce
// cache fallbacks.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

type Fetcher struct {
	client api.Client
	store  *store.Store
	status *netwatch.Status
	log    logging.Logger
}

func NewFetcher(client api.Client, st *store.Store, status *netwatch.Status, logger logging.Logger) *Fetcher {
	return &Fetcher{client: client, store: st, status: status, log: logger}
}

// FetchWithFallback returns the JSON array for a category. Online: GET, and
// on a 2xx the snapshot is overwritten with the body before it is returned.
// Offline, or on any network/HTTP failure: the last-saved snapshot is
// returned unconditionally, even if empty.
func (f *Fetcher) FetchWithFallback(ctx context.Context, category models.Category) ([]byte, Source) {
	if f.status.Online() {
		body, err := f.client.List(ctx, category)
		if err == nil {
			f.store.Save(ctx, category, body)
			return body, SourceNetwork
		}
		f.log.Warn(ctx, "fetch failed, falling back to cache", "category", category, "err", err)
	}

	return f.store.Get(ctx, category), SourceCache
}

// List is the typed convenience wrapper over FetchWithFallback.
func List[T any](ctx context.Context, f *Fetcher, category models.Category) ([]T, Source, error) {
	body, source := f.FetchWithFallback(ctx, category)

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, source, err
	}
	return items, source, nil
}
