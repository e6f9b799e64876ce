package service

import (
	"strings"

	"fleet-admin/internal/model"
	"fleet-admin/internal/utils"
)

// FindFleetUnit looks a vehicle up by unit id, ignoring case and surrounding
// whitespace. The fleet is passed explicitly so callers can resolve against a
// list that has not been committed yet.
func FindFleetUnit(fleet []model.FleetUnit, vehicleID string) (model.FleetUnit, bool) {
	key := utils.NormalizeUnitID(vehicleID)
	if key == "" {
		return model.FleetUnit{}, false
	}
	for _, unit := range fleet {
		if utils.NormalizeUnitID(unit.UnitID) == key {
			return unit, true
		}
	}
	return model.FleetUnit{}, false
}

func VehicleOwnership(fleet []model.FleetUnit, vehicleID string) model.Ownership {
	unit, ok := FindFleetUnit(fleet, vehicleID)
	if !ok {
		return ""
	}
	return unit.Ownership
}

// DescribeOwnership returns the display label for an ownership value. Unknown
// values pass through unchanged.
func DescribeOwnership(raw string) string {
	switch strings.ToLower(raw) {
	case "rent-in", "rentin", "rent in":
		return "Rent-In"
	case "owned", "company owned", "company":
		return "Company Owned"
	}
	return raw
}

// Resolver answers cross-entity questions about one snapshot.
type Resolver struct {
	snapshot model.Snapshot
}

func NewResolver(snapshot model.Snapshot) Resolver {
	return Resolver{snapshot: snapshot}
}

func (r Resolver) FindFleetUnit(vehicleID string) (model.FleetUnit, bool) {
	return FindFleetUnit(r.snapshot.Fleet, vehicleID)
}

func (r Resolver) VehicleOwnership(vehicleID string) model.Ownership {
	return VehicleOwnership(r.snapshot.Fleet, vehicleID)
}

func (r Resolver) VehicleSupplier(vehicleID string) string {
	unit, ok := r.FindFleetUnit(vehicleID)
	if !ok {
		return ""
	}
	return unit.Supplier
}

// TripOwnership prefers the ownership cached on the trip and only falls back to
// the live fleet record when the trip never captured one.
func (r Resolver) TripOwnership(trip model.Trip) model.Ownership {
	if trip.UnitOwnership != "" {
		return trip.UnitOwnership
	}
	return r.VehicleOwnership(trip.Vehicle)
}

// SupplierVehicles lists the rent-in unit ids leased from supplierName.
func (r Resolver) SupplierVehicles(supplierName string) []string {
	key := utils.NormalizeText(supplierName)
	vehicles := []string{}
	if key == "" {
		return vehicles
	}
	for _, unit := range r.snapshot.Fleet {
		if !unit.IsRentIn() || utils.NormalizeText(unit.Supplier) != key {
			continue
		}
		if unit.UnitID != "" {
			vehicles = append(vehicles, unit.UnitID)
		}
	}
	utils.SortStrings(vehicles)
	return vehicles
}

// SupplierTrips lists trip ids run on the supplier's vehicles, or on vehicleID
// alone when it is given.
func (r Resolver) SupplierTrips(supplierName, vehicleID string) []string {
	trips := []string{}
	if strings.TrimSpace(supplierName) == "" {
		return trips
	}

	scope := make(map[string]struct{})
	if strings.TrimSpace(vehicleID) != "" {
		scope[utils.NormalizeUnitID(vehicleID)] = struct{}{}
	} else {
		for _, v := range r.SupplierVehicles(supplierName) {
			scope[utils.NormalizeUnitID(v)] = struct{}{}
		}
	}

	for _, trip := range r.snapshot.Trips {
		if trip.TripID == "" {
			continue
		}
		if _, ok := scope[utils.NormalizeUnitID(trip.Vehicle)]; ok {
			trips = append(trips, trip.TripID)
		}
	}
	utils.SortStrings(trips)
	return trips
}

// SupplierNames collects every supplier name referenced anywhere in the state.
func (r Resolver) SupplierNames() []string {
	seen := make(map[string]struct{})
	names := []string{}
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, entry := range r.snapshot.SupplierDirectory {
		add(entry.Name)
	}
	for _, unit := range r.snapshot.Fleet {
		add(unit.Supplier)
	}
	for _, driver := range r.snapshot.Drivers {
		add(driver.Supplier)
	}
	for _, payment := range r.snapshot.Suppliers {
		add(payment.Supplier)
	}

	utils.SortStrings(names)
	return names
}

// EligibleDrivers returns the drivers that may be assigned to a trip on
// vehicleID: supplier drivers of the leasing supplier for rent-in units, company
// drivers for owned units, everyone when the vehicle is unknown.
func (r Resolver) EligibleDrivers(vehicleID string) []model.Driver {
	drivers := []model.Driver{}
	unit, found := r.FindFleetUnit(vehicleID)

	for _, driver := range r.snapshot.Drivers {
		switch {
		case !found:
			drivers = append(drivers, driver)
		case unit.IsRentIn():
			if !driver.IsSupplierDriver() {
				continue
			}
			vehicleSupplier := utils.NormalizeText(unit.Supplier)
			if vehicleSupplier == "" {
				if driver.Supplier != "" {
					drivers = append(drivers, driver)
				}
				continue
			}
			if utils.NormalizeText(driver.Supplier) == vehicleSupplier {
				drivers = append(drivers, driver)
			}
		case unit.Ownership == model.OwnershipOwned:
			if !driver.IsSupplierDriver() {
				drivers = append(drivers, driver)
			}
		default:
			drivers = append(drivers, driver)
		}
	}
	return drivers
}
