// Package models defines the entities cached and synchronized by the agent:
// low-churn reference registries and the registration records (fuel,
// maintenance, trip) that are the unit of offline-created mutation.
package models

// Category names a reference-entity snapshot in the local store and the
// corresponding collection on the fleet API.
type Category string

const (
	CategoryVehicles         Category = "vehicles"
	CategoryDrivers          Category = "drivers"
	CategoryStations         Category = "fuel-stations"
	CategoryFuelTypes        Category = "fuel-types"
	CategoryMaintenanceTypes Category = "maintenance-types"
)

// Categories lists every reference snapshot the agent mirrors, in the order
// they are refreshed on startup.
var Categories = []Category{
	CategoryVehicles,
	CategoryDrivers,
	CategoryStations,
	CategoryFuelTypes,
	CategoryMaintenanceTypes,
}

// Vehicle is a fleet vehicle. IDs are server-assigned and strictly positive
// once persisted.
type Vehicle struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Plate string  `json:"plate"`
	Model string  `json:"model"`
	Year  int     `json:"year"`
	Km    float64 `json:"km"`
}

// Driver is a registered driver.
type Driver struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	License string `json:"license"`
	Phone   string `json:"phone"`
}

// Station is a fuel station.
type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// FuelType is a fuel kind (gasoline, ethanol, diesel, ...).
type FuelType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MaintenanceType is a maintenance kind (oil change, tires, ...).
type MaintenanceType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
