// Package references declares the repository contract for the five low-churn
// registries the agents mirror: vehicles, drivers, fuel stations, fuel types
// and maintenance types.
package references

import (
	"context"

	"github.com/danielmvs/fleetsync/internal/models"
)

type Repository interface {
	ListVehicles(ctx context.Context) ([]*models.Vehicle, error)
	CreateVehicle(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)

	ListDrivers(ctx context.Context) ([]*models.Driver, error)
	CreateDriver(ctx context.Context, d *models.Driver) (*models.Driver, error)

	ListStations(ctx context.Context) ([]*models.Station, error)
	CreateStation(ctx context.Context, s *models.Station) (*models.Station, error)

	ListFuelTypes(ctx context.Context) ([]*models.FuelType, error)
	CreateFuelType(ctx context.Context, f *models.FuelType) (*models.FuelType, error)

	ListMaintenanceTypes(ctx context.Context) ([]*models.MaintenanceType, error)
	CreateMaintenanceType(ctx context.Context, m *models.MaintenanceType) (*models.MaintenanceType, error)
}
