package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	// cache=shared keeps the pool's connections on one in-memory database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := Open(context.Background(), dsn, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshot_MissReturnsEmptyList(t *testing.T) {
	s := setupStore(t)
	got := s.Get(context.Background(), models.CategoryVehicles)
	assert.JSONEq(t, `[]`, string(got))
}

func TestSnapshot_SaveThenGetRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	body := []byte(`[{"id":1,"name":"Truck A"}]`)
	s.Save(ctx, models.CategoryVehicles, body)

	assert.Equal(t, body, s.Get(ctx, models.CategoryVehicles))
}

func TestSnapshot_SaveOverwritesWholeCategory(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.Save(ctx, models.CategoryDrivers, []byte(`[{"id":1},{"id":2}]`))
	s.Save(ctx, models.CategoryDrivers, []byte(`[{"id":3}]`))

	assert.JSONEq(t, `[{"id":3}]`, string(s.Get(ctx, models.CategoryDrivers)))
}

func TestSnapshot_CategoriesAreIndependent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.Save(ctx, models.CategoryFuelTypes, []byte(`[{"id":1,"name":"Diesel"}]`))

	assert.JSONEq(t, `[]`, string(s.Get(ctx, models.CategoryMaintenanceTypes)))
}

func tripReg(id int64, offline bool) *models.Registration {
	return &models.Registration{
		ID:        id,
		Kind:      models.KindTrip,
		VehicleID: 1,
		DriverID:  2,
		Date:      "2024-06-01",
		InitialKm: 1000,
		Offline:   offline,
		Trip:      &models.TripDetails{Origin: "Garagem", Destination: "Filial Norte", FinalKm: 1080},
	}
}

func TestRegistrations_InsertValidatesKind(t *testing.T) {
	s := setupStore(t)
	r := tripReg(-1, true)
	r.Trip = nil
	assert.Error(t, s.InsertRegistration(context.Background(), r))
}

func TestRegistrations_PendingOnlyOfflineRecords(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRegistration(ctx, tripReg(-1700000000001, true)))
	require.NoError(t, s.InsertRegistration(ctx, tripReg(42, false)))

	pending, err := s.PendingRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(-1700000000001), pending[0].Registration.ID)
	assert.True(t, pending[0].Registration.Offline)
	assert.NotEmpty(t, pending[0].IdempotencyKey)

	all, err := s.Registrations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegistrations_IdempotencyKeyFrozenAcrossReads(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRegistration(ctx, tripReg(-5, true)))

	first, err := s.PendingRegistrations(ctx)
	require.NoError(t, err)
	second, err := s.PendingRegistrations(ctx)
	require.NoError(t, err)

	// a chave nasce com o registro e nunca muda
	assert.Equal(t, first[0].IdempotencyKey, second[0].IdempotencyKey)
}

func TestRegistrations_ConfirmSwapsTempRow(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRegistration(ctx, tripReg(-1700000000001, true)))

	confirmed := tripReg(57, false)
	require.NoError(t, s.Confirm(ctx, -1700000000001, confirmed))

	pending, err := s.PendingRegistrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.Registrations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(57), all[0].ID)
	assert.False(t, all[0].Offline)
}

func TestRegistrations_ConfirmRejectsNegativeServerID(t *testing.T) {
	s := setupStore(t)
	assert.Error(t, s.Confirm(context.Background(), -1, tripReg(-2, false)))
}

func TestRegistrations_ConfirmMissingTempRowFails(t *testing.T) {
	s := setupStore(t)
	err := s.Confirm(context.Background(), -99, tripReg(57, false))
	assert.Error(t, err)
}

func TestImages_SaveDecodeAndDrain(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// "fleet" em base64
	s.SaveImage(ctx, "inspection-1", "data:image/png;base64,ZmxlZXQ=")

	pending, err := s.PendingImages(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "inspection-1", pending[0].Key)
	assert.Equal(t, "image/png", pending[0].ContentType)
	assert.Equal(t, []byte("fleet"), pending[0].Data)

	require.NoError(t, s.MarkImageSynced(ctx, "inspection-1"))

	pending, err = s.PendingImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestImages_MalformedDataURLSwallowed(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.SaveImage(ctx, "bad", "not-a-data-url")

	pending, err := s.PendingImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDecodeDataURL(t *testing.T) {
	ct, data, err := decodeDataURL("data:image/jpeg;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, []byte("hi"), data)

	ct, data, err = decodeDataURL("data:,plain")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", ct)
	assert.Equal(t, []byte("plain"), data)

	_, _, err = decodeDataURL("data:image/png;base64,!!!")
	assert.Error(t, err)
}
