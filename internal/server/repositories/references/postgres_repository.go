package references

import (
	"context"
	"fmt"

	"github.com/danielmvs/fleetsync/internal/dbx"
	"github.com/danielmvs/fleetsync/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	query := `SELECT id, name, plate, model, year, km FROM vehicles ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Vehicle{}
	for rows.Next() {
		v := &models.Vehicle{}
		if err := rows.Scan(&v.ID, &v.Name, &v.Plate, &v.Model, &v.Year, &v.Km); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) CreateVehicle(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	query :=
		`INSERT INTO vehicles (name, plate, model, year, km)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, v.Name, v.Plate, v.Model, v.Year, v.Km).Scan(&v.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	query := `SELECT id, name, license, phone FROM drivers ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Driver{}
	for rows.Next() {
		d := &models.Driver{}
		if err := rows.Scan(&d.ID, &d.Name, &d.License, &d.Phone); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) CreateDriver(ctx context.Context, d *models.Driver) (*models.Driver, error) {
	query :=
		`INSERT INTO drivers (name, license, phone)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, d.Name, d.License, d.Phone).Scan(&d.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) ListStations(ctx context.Context) ([]*models.Station, error) {
	query := `SELECT id, name, city FROM fuel_stations ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Station{}
	for rows.Next() {
		s := &models.Station{}
		if err := rows.Scan(&s.ID, &s.Name, &s.City); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) CreateStation(ctx context.Context, s *models.Station) (*models.Station, error) {
	query :=
		`INSERT INTO fuel_stations (name, city)
		 VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, s.Name, s.City).Scan(&s.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListFuelTypes(ctx context.Context) ([]*models.FuelType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM fuel_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.FuelType{}
	for rows.Next() {
		f := &models.FuelType{}
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) CreateFuelType(ctx context.Context, f *models.FuelType) (*models.FuelType, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO fuel_types (name) VALUES ($1) RETURNING id`, f.Name).Scan(&f.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListMaintenanceTypes(ctx context.Context) ([]*models.MaintenanceType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM maintenance_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.MaintenanceType{}
	for rows.Next() {
		m := &models.MaintenanceType{}
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) CreateMaintenanceType(ctx context.Context, m *models.MaintenanceType) (*models.MaintenanceType, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO maintenance_types (name) VALUES ($1) RETURNING id`, m.Name).Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}
