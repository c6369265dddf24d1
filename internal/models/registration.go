package models

import (
	"github.com/danielmvs/fleetsync/internal/common"
)

// Kind classifies a registration record.
type Kind string

const (
	KindFuel        Kind = "fuel"
	KindMaintenance Kind = "maintenance"
	KindTrip        Kind = "trip"
)

// Registration is a logged fuel/maintenance/trip event. Exactly one of the
// detail structs matching Kind must be set; Validate enforces it.
//
// ID is strictly negative while the record only exists locally (minted by the
// temp-ID allocator) and strictly positive once the server has confirmed it.
// Offline mirrors the pending marker in the local store.
type Registration struct {
	ID        int64   `json:"id"`
	Kind      Kind    `json:"kind"`
	VehicleID int64   `json:"vehicleId"`
	DriverID  int64   `json:"driverId"`
	Date      string  `json:"date"`
	InitialKm float64 `json:"initialKm"`
	Offline   bool    `json:"isOffline"`

	Fuel        *FuelDetails        `json:"fuel,omitempty"`
	Maintenance *MaintenanceDetails `json:"maintenance,omitempty"`
	Trip        *TripDetails        `json:"trip,omitempty"`
}

// FuelDetails holds the fuel-variant fields.
type FuelDetails struct {
	StationID  int64   `json:"stationId"`
	FuelTypeID int64   `json:"fuelTypeId"`
	Liters     float64 `json:"liters"`
	Cost       float64 `json:"cost"`
	FullTank   bool    `json:"fullTank"`
	Arla       bool    `json:"arla"`
}

// MaintenanceDetails holds the maintenance-variant fields.
type MaintenanceDetails struct {
	MaintenanceTypeID int64   `json:"maintenanceTypeId"`
	Cost              float64 `json:"cost"`
}

// TripDetails holds the trip-variant fields.
type TripDetails struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Reason      string  `json:"reason"`
	FinalKm     float64 `json:"finalKm"`
}

// Validate checks the discriminant: Kind must be known and only the matching
// detail struct may be present.
func (r *Registration) Validate() error {
	switch r.Kind {
	case KindFuel:
		if r.Fuel == nil || r.Maintenance != nil || r.Trip != nil {
			return common.ErrDetailsMismatch
		}
	case KindMaintenance:
		if r.Maintenance == nil || r.Fuel != nil || r.Trip != nil {
			return common.ErrDetailsMismatch
		}
	case KindTrip:
		if r.Trip == nil || r.Fuel != nil || r.Maintenance != nil {
			return common.ErrDetailsMismatch
		}
	default:
		return common.ErrUnknownKind
	}
	return nil
}

// Confirmed reports whether the record carries a server-assigned ID.
func (r *Registration) Confirmed() bool {
	return r.ID > 0
}
