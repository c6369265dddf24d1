// Package recorder is the write path for locally created records: while
// online a new registration is submitted to the fleet API directly; offline,
// or when the submission fails, it is enqueued in the local store under a
// temporary negative ID and left for the reconciler. Either way the record is
// accepted, never rejected for lack of connectivity.
package recorder

import (
	"context"

	"github.com/danielmvs/fleetsync/internal/agent/api"
	"github.com/danielmvs/fleetsync/internal/agent/netwatch"
	"github.com/danielmvs/fleetsync/internal/agent/store"
	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/google/uuid"
)

type Recorder struct {
	store  *store.Store
	client api.Client
	status *netwatch.Status
	alloc  *netwatch.Allocator
	log    logging.Logger
}

func NewRecorder(st *store.Store, client api.Client, status *netwatch.Status, alloc *netwatch.Allocator, logger logging.Logger) *Recorder {
	return &Recorder{store: st, client: client, status: status, alloc: alloc, log: logger}
}

// CreateRegistration accepts a new record from the UI. Online it is POSTed
// immediately and the confirmed row is kept as local history. Offline, or on
// a network failure (which also flips the online flag), the record is given
// a fresh temporary ID, tagged offline and enqueued as pending.
func (r *Recorder) CreateRegistration(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	if r.status.Online() {
		confirmed, err := r.client.CreateRegistration(ctx, reg, uuid.NewString())
		if err == nil {
			if err := r.store.InsertRegistration(ctx, confirmed); err != nil {
				r.log.Warn(ctx, "failed to store confirmed registration", "id", confirmed.ID, "err", err)
			}
			return confirmed, nil
		}
		r.log.Warn(ctx, "submission failed, queueing offline", "kind", reg.Kind, "err", err)
		r.status.Set(ctx, false)
	}

	queued := *reg
	queued.ID = r.alloc.Next()
	queued.Offline = true
	if err := r.store.InsertRegistration(ctx, &queued); err != nil {
		return nil, err
	}
	return &queued, nil
}

// SaveImage caches an inspection photo for the reconciler to drain.
func (r *Recorder) SaveImage(ctx context.Context, key string, dataURL string) {
	r.store.SaveImage(ctx, key, dataURL)
}
