// Package syncer reconciles locally created records against the server of
// record once connectivity returns: every pending registration is
// re-submitted in creation order, confirmed records lose their pending
// marker, failed ones stay queued for the next run. A record created offline
// is never silently dropped.
package syncer

import (
	"context"
	"time"

	"github.com/danielmvs/fleetsync/internal/agent/api"
	"github.com/danielmvs/fleetsync/internal/agent/store"
	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/sethvargo/go-retry"
)

// Notifier forwards worker events to connected UI clients. The gateway hub
// implements it; a nil notifier is allowed in tests.
type Notifier interface {
	Broadcast(eventType string, payload any)
}

// EventSyncCompleted announces the aggregate outcome of a drain run.
const EventSyncCompleted = "SYNC_COMPLETED"

type Reconciler struct {
	store    *store.Store
	client   api.Client
	log      logging.Logger
	notifier Notifier

	// backoff bounds the in-run retries of a single POST; after it is
	// exhausted the record stays queued and the drain moves on.
	attempts uint64
	interval time.Duration
}

func NewReconciler(st *store.Store, client api.Client, logger logging.Logger, notifier Notifier) *Reconciler {
	return &Reconciler{
		store:    st,
		client:   client,
		log:      logger,
		notifier: notifier,
		attempts: 2,
		interval: 500 * time.Millisecond,
	}
}

// Sync drains the pending queue. It returns true iff every pending
// registration and image was confirmed; partial progress is preserved and an
// error is returned only when the queue itself cannot be read.
func (r *Reconciler) Sync(ctx context.Context) (bool, error) {
	pending, err := r.store.PendingRegistrations(ctx)
	if err != nil {
		return false, err
	}

	ok := true
	for _, q := range pending {
		if err := r.submit(ctx, q); err != nil {
			r.log.Warn(ctx, "registration left queued", "id", q.Registration.ID, "kind", q.Registration.Kind, "err", err)
			ok = false
		}
	}

	if !r.syncImages(ctx) {
		ok = false
	}

	if r.notifier != nil {
		r.notifier.Broadcast(EventSyncCompleted, map[string]any{
			"success": ok,
			"pending": len(pending),
		})
	}
	return ok, nil
}

// submit POSTs one record, with a short bounded backoff, and swaps the
// temporary row for the confirmed one on success.
func (r *Reconciler) submit(ctx context.Context, q *store.Queued) error {
	var confirmed *models.Registration

	backoff := retry.WithMaxRetries(r.attempts, retry.NewConstant(r.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := r.client.CreateRegistration(ctx, q.Registration, q.IdempotencyKey)
		if err != nil {
			return retry.RetryableError(err)
		}
		confirmed = c
		return nil
	})
	if err != nil {
		return err
	}

	return r.store.Confirm(ctx, q.Registration.ID, confirmed)
}

// syncImages drains pending inspection photos through presigned PUT URLs.
func (r *Reconciler) syncImages(ctx context.Context) bool {
	images, err := r.store.PendingImages(ctx)
	if err != nil {
		r.log.Warn(ctx, "failed to read pending images", "err", err)
		return false
	}

	ok := true
	for _, img := range images {
		if err := r.uploadImage(ctx, img); err != nil {
			r.log.Warn(ctx, "image left queued", "key", img.Key, "err", err)
			ok = false
		}
	}
	return ok
}

func (r *Reconciler) uploadImage(ctx context.Context, img *store.Image) error {
	_, url, err := r.client.NewUploadURL(ctx)
	if err != nil {
		return err
	}
	if err := r.client.UploadImage(ctx, url, img.ContentType, img.Data); err != nil {
		return err
	}
	return r.store.MarkImageSynced(ctx, img.Key)
}
