package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/danielmvs/fleetsync/internal/agent/store"
	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	nextID    int64
	failKinds map[models.Kind]bool
	created   []string // idempotency keys, in submit order

	uploadErr error
	uploaded  []string
}

func (f *fakeClient) Ping(ctx context.Context) error                             { return nil }
func (f *fakeClient) Login(ctx context.Context, username, password string) error { return nil }
func (f *fakeClient) List(ctx context.Context, category models.Category) ([]byte, error) {
	return []byte(`[]`), nil
}

func (f *fakeClient) CreateRegistration(ctx context.Context, r *models.Registration, idempotencyKey string) (*models.Registration, error) {
	if f.failKinds[r.Kind] {
		return nil, errors.New("server rejected")
	}
	f.created = append(f.created, idempotencyKey)
	f.nextID++
	confirmed := *r
	confirmed.ID = f.nextID
	confirmed.Offline = false
	return &confirmed, nil
}

func (f *fakeClient) NewUploadURL(ctx context.Context) (string, string, error) {
	return "k", "http://storage.test/put", nil
}

func (f *fakeClient) UploadImage(ctx context.Context, url string, contentType string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = append(f.uploaded, contentType)
	return nil
}

type fakeNotifier struct {
	events   []string
	payloads []any
}

func (f *fakeNotifier) Broadcast(eventType string, payload any) {
	f.events = append(f.events, eventType)
	f.payloads = append(f.payloads, payload)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setup(t *testing.T, client *fakeClient) (*Reconciler, *store.Store, *fakeNotifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := store.Open(context.Background(), dsn, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	n := &fakeNotifier{}
	r := NewReconciler(st, client, testLogger(), n)
	r.attempts = 0 // sem retry nos testes
	r.interval = time.Millisecond
	return r, st, n
}

func offlineReg(id int64, kind models.Kind) *models.Registration {
	r := &models.Registration{
		ID:        id,
		Kind:      kind,
		VehicleID: 1,
		DriverID:  1,
		Date:      "2024-06-01",
		Offline:   true,
	}
	switch kind {
	case models.KindFuel:
		r.Fuel = &models.FuelDetails{StationID: 1, FuelTypeID: 1, Liters: 40, Cost: 200}
	case models.KindMaintenance:
		r.Maintenance = &models.MaintenanceDetails{MaintenanceTypeID: 2, Cost: 90}
	case models.KindTrip:
		r.Trip = &models.TripDetails{Origin: "A", Destination: "B", FinalKm: 10}
	}
	return r
}

func TestSync_EmptyQueueIsNoOp(t *testing.T) {
	r, _, n := setup(t, &fakeClient{})

	for i := 0; i < 2; i++ {
		ok, err := r.Sync(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, []string{EventSyncCompleted, EventSyncCompleted}, n.events)
}

func TestSync_DrainsQueueInOrder(t *testing.T) {
	client := &fakeClient{}
	r, st, _ := setup(t, client)
	ctx := context.Background()

	require.NoError(t, st.InsertRegistration(ctx, offlineReg(-1700000000003, models.KindFuel)))
	require.NoError(t, st.InsertRegistration(ctx, offlineReg(-1700000000002, models.KindTrip)))

	pending, err := st.PendingRegistrations(ctx)
	require.NoError(t, err)
	wantOrder := []string{pending[0].IdempotencyKey, pending[1].IdempotencyKey}

	ok, err := r.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, wantOrder, client.created)

	left, err := st.PendingRegistrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	all, err := st.Registrations(ctx)
	require.NoError(t, err)
	for _, reg := range all {
		assert.Positive(t, reg.ID)
		assert.False(t, reg.Offline)
	}
}

func TestSync_FailedRecordStaysQueued(t *testing.T) {
	client := &fakeClient{failKinds: map[models.Kind]bool{models.KindTrip: true}}
	r, st, n := setup(t, client)
	ctx := context.Background()

	require.NoError(t, st.InsertRegistration(ctx, offlineReg(-10, models.KindFuel)))
	require.NoError(t, st.InsertRegistration(ctx, offlineReg(-11, models.KindTrip)))

	ok, err := r.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "aggregate result must report the failure")

	left, err := st.PendingRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1, "partial progress: only the failed record remains")
	assert.Equal(t, models.KindTrip, left[0].Registration.Kind)

	require.Len(t, n.payloads, 1)
	payload := n.payloads[0].(map[string]any)
	assert.Equal(t, false, payload["success"])
}

func TestSync_RetryKeepsIdempotencyKey(t *testing.T) {
	client := &fakeClient{failKinds: map[models.Kind]bool{models.KindTrip: true}}
	r, st, _ := setup(t, client)
	ctx := context.Background()

	require.NoError(t, st.InsertRegistration(ctx, offlineReg(-11, models.KindTrip)))

	pending, err := st.PendingRegistrations(ctx)
	require.NoError(t, err)
	frozenKey := pending[0].IdempotencyKey

	ok, err := r.Sync(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// segunda tentativa reenvia com a mesma chave
	client.failKinds = nil
	ok, err = r.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{frozenKey}, client.created)
}

func TestSync_DrainsPendingImages(t *testing.T) {
	client := &fakeClient{}
	r, st, _ := setup(t, client)
	ctx := context.Background()

	st.SaveImage(ctx, "photo-1", "data:image/png;base64,ZmxlZXQ=")

	ok, err := r.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"image/png"}, client.uploaded)

	left, err := st.PendingImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSync_ImageUploadFailureKeepsPending(t *testing.T) {
	client := &fakeClient{uploadErr: errors.New("storage down")}
	r, st, _ := setup(t, client)
	ctx := context.Background()

	st.SaveImage(ctx, "photo-1", "data:image/png;base64,ZmxlZXQ=")

	ok, err := r.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	left, err := st.PendingImages(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
