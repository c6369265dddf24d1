package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/danielmvs/fleetsync/internal/server/repositories/registrations"
	"github.com/danielmvs/fleetsync/internal/server/repositories/repomanager"
)

// FleetService exposes the reference registries and the canonical
// registration log to the REST layer.
type FleetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewFleetService(db *sql.DB, m repomanager.RepositoryManager) *FleetService {
	return &FleetService{db: db, repomanager: m}
}

// ListCategory returns one reference registry as a value ready for JSON
// encoding. Unknown categories yield an error.
func (s *FleetService) ListCategory(ctx context.Context, category models.Category) (any, error) {
	repo := s.repomanager.References(s.db)

	switch category {
	case models.CategoryVehicles:
		return repo.ListVehicles(ctx)
	case models.CategoryDrivers:
		return repo.ListDrivers(ctx)
	case models.CategoryStations:
		return repo.ListStations(ctx)
	case models.CategoryFuelTypes:
		return repo.ListFuelTypes(ctx)
	case models.CategoryMaintenanceTypes:
		return repo.ListMaintenanceTypes(ctx)
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
}

// CreateInCategory decodes and stores one reference entity.
func (s *FleetService) CreateInCategory(ctx context.Context, category models.Category, body []byte) (any, error) {
	repo := s.repomanager.References(s.db)

	switch category {
	case models.CategoryVehicles:
		v := &models.Vehicle{}
		if err := json.Unmarshal(body, v); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return repo.CreateVehicle(ctx, v)
	case models.CategoryDrivers:
		d := &models.Driver{}
		if err := json.Unmarshal(body, d); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return repo.CreateDriver(ctx, d)
	case models.CategoryStations:
		st := &models.Station{}
		if err := json.Unmarshal(body, st); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return repo.CreateStation(ctx, st)
	case models.CategoryFuelTypes:
		f := &models.FuelType{}
		if err := json.Unmarshal(body, f); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return repo.CreateFuelType(ctx, f)
	case models.CategoryMaintenanceTypes:
		m := &models.MaintenanceType{}
		if err := json.Unmarshal(body, m); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return repo.CreateMaintenanceType(ctx, m)
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
}

// CreateRegistration validates and stores a registration. The idempotency key
// makes agent retries safe: a duplicate submission returns the ID assigned on
// the first insert. The returned registration carries the canonical ID.
func (s *FleetService) CreateRegistration(ctx context.Context, r *models.Registration, idempotencyKey string) (*models.Registration, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode error: %w", err)
	}

	repo := s.repomanager.Registrations(s.db)
	id, err := repo.Create(ctx, &registrations.Record{
		Kind:           string(r.Kind),
		Payload:        payload,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	confirmed := *r
	confirmed.ID = id
	confirmed.Offline = false
	return &confirmed, nil
}

// ListRegistrations returns every canonical registration.
func (s *FleetService) ListRegistrations(ctx context.Context) ([]*models.Registration, error) {
	repo := s.repomanager.Registrations(s.db)

	records, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Registration, 0, len(records))
	for _, rec := range records {
		r := &models.Registration{}
		if err := json.Unmarshal(rec.Payload, r); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		r.ID = rec.ID
		r.Offline = false
		result = append(result, r)
	}
	return result, nil
}
