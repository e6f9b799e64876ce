package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fleet-admin/internal/model"
	"fleet-admin/internal/utils"
)

var newID = uuid.NewString

// DecodeSnapshot reads a snapshot from arbitrary JSON. Malformed input yields the
// default snapshot together with an ErrInvalidInput error so callers can decide
// whether to reset or reject.
func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Normalize(model.DefaultSnapshot()), fmt.Errorf("%w: empty snapshot", ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Normalize(model.DefaultSnapshot()), fmt.Errorf("%w: invalid JSON: %v", ErrInvalidInput, err)
	}

	obj, ok := asObject(raw)
	if !ok {
		return Normalize(model.DefaultSnapshot()), fmt.Errorf("%w: expected a JSON object", ErrInvalidInput)
	}

	return SnapshotFromMap(obj), nil
}

// SnapshotFromMap keeps only the known keys of a decoded JSON object and
// canonicalizes the result.
func SnapshotFromMap(obj map[string]any) model.Snapshot {
	s := model.DefaultSnapshot()

	for _, item := range asObjects(obj["fleet"]) {
		s.Fleet = append(s.Fleet, model.FleetUnit{
			ID:        asString(item["id"]),
			UnitID:    asString(item["unitId"]),
			FleetType: asString(item["fleetType"]),
			Ownership: model.Ownership(asString(item["ownership"])),
			Model:     asString(item["model"]),
			Capacity:  asString(item["capacity"]),
			Status:    asString(item["status"]),
			Supplier:  asString(item["supplier"]),
		})
	}

	for _, item := range asObjects(obj["drivers"]) {
		s.Drivers = append(s.Drivers, model.Driver{
			ID:           asString(item["id"]),
			Name:         asString(item["name"]),
			License:      asString(item["license"]),
			Phone:        asString(item["phone"]),
			Availability: asString(item["availability"]),
			Affiliation:  model.Affiliation(asString(item["affiliation"])),
			Supplier:     asString(item["supplier"]),
		})
	}

	for _, item := range asObjects(obj["trips"]) {
		s.Trips = append(s.Trips, model.Trip{
			ID:            asString(item["id"]),
			TripID:        asString(item["tripId"]),
			Date:          asString(item["date"]),
			Customer:      asString(item["customer"]),
			Vehicle:       asString(item["vehicle"]),
			Driver:        asString(item["driver"]),
			Route:         asString(item["route"]),
			RentalCharges: asAmount(item["rentalCharges"]),
			Status:        asString(item["status"]),
			UnitOwnership: model.Ownership(asString(item["unitOwnership"])),
		})
	}

	for _, item := range asObjects(obj["invoices"]) {
		s.Invoices = append(s.Invoices, model.Invoice{
			ID:       asString(item["id"]),
			Invoice:  asString(item["invoice"]),
			Customer: asString(item["customer"]),
			Trip:     asString(item["trip"]),
			Amount:   asAmount(item["amount"]),
			DueDate:  asString(item["dueDate"]),
			Status:   asString(item["status"]),
			Notes:    asString(item["notes"]),
		})
	}

	for _, item := range asObjects(obj["suppliers"]) {
		s.Suppliers = append(s.Suppliers, model.SupplierPayment{
			ID:        asString(item["id"]),
			Reference: asString(item["reference"]),
			Supplier:  asString(item["supplier"]),
			Vehicle:   asString(item["vehicle"]),
			Trip:      asString(item["trip"]),
			Amount:    asAmount(item["amount"]),
			DueDate:   asString(item["dueDate"]),
			Status:    asString(item["status"]),
			Notes:     asString(item["notes"]),
		})
	}

	for _, item := range asObjects(obj["supplierDirectory"]) {
		s.SupplierDirectory = append(s.SupplierDirectory, model.SupplierDirectoryEntry{
			ID:      asString(item["id"]),
			Name:    asString(item["name"]),
			Contact: asString(item["contact"]),
			Phone:   asString(item["phone"]),
			Email:   asString(item["email"]),
		})
	}

	s.Customers = append(s.Customers, asStrings(obj["customers"])...)

	if filter, ok := asObject(obj["dashboardFilter"]); ok {
		s.DashboardFilter = model.DashboardFilter{
			Mode:  model.DashboardMode(asString(filter["mode"])),
			Start: asString(filter["start"]),
			End:   asString(filter["end"]),
		}
	}

	s.NextTripNumber = 0
	if n, ok := asPositiveInt(obj["nextTripNumber"]); ok {
		s.NextTripNumber = n
	}

	return Normalize(s)
}

// Normalize returns the canonical form of s. It is idempotent: normalizing an
// already normalized snapshot changes nothing.
func Normalize(s model.Snapshot) model.Snapshot {
	out := s.Clone()

	ids := newIDSet()

	seenUnits := make(map[string]struct{}, len(out.Fleet))
	fleet := make([]model.FleetUnit, 0, len(out.Fleet))
	for _, unit := range out.Fleet {
		unit.UnitID = strings.TrimSpace(unit.UnitID)
		if unit.UnitID == "" {
			continue
		}
		unit.Supplier = strings.TrimSpace(unit.Supplier)
		key := utils.NormalizeUnitID(unit.UnitID)
		if _, dup := seenUnits[key]; dup {
			continue
		}
		seenUnits[key] = struct{}{}
		unit.ID = ids.claim("fleet", unit.ID)
		fleet = append(fleet, unit)
	}
	out.Fleet = fleet

	for i := range out.Drivers {
		out.Drivers[i].Supplier = strings.TrimSpace(out.Drivers[i].Supplier)
		out.Drivers[i].ID = ids.claim("drivers", out.Drivers[i].ID)
	}

	for i := range out.Trips {
		trip := &out.Trips[i]
		trip.ID = ids.claim("trips", trip.ID)
		if trip.UnitOwnership == "" {
			trip.UnitOwnership = VehicleOwnership(out.Fleet, trip.Vehicle)
		}
	}

	for i := range out.Invoices {
		out.Invoices[i].ID = ids.claim("invoices", out.Invoices[i].ID)
	}
	for i := range out.Suppliers {
		out.Suppliers[i].ID = ids.claim("suppliers", out.Suppliers[i].ID)
	}
	for i := range out.SupplierDirectory {
		out.SupplierDirectory[i].ID = ids.claim("supplierDirectory", out.SupplierDirectory[i].ID)
	}

	out.Customers = customerRegistry(out)
	out.DashboardFilter = normalizeFilter(out.DashboardFilter)
	out.NextTripNumber = nextTripNumber(out.Trips, out.NextTripNumber)

	return out
}

func normalizeFilter(filter model.DashboardFilter) model.DashboardFilter {
	if !filter.Mode.Valid() {
		filter.Mode = model.DashboardModeThisMonth
	}
	return filter
}

// nextTripNumber keeps the counter strictly above every numeric trip suffix.
func nextTripNumber(trips []model.Trip, current int) int {
	if current < 1 {
		current = 1
	}
	for _, trip := range trips {
		if n, ok := utils.TripNumber(trip.TripID); ok && n >= current {
			current = n + 1
		}
	}
	return current
}

func customerRegistry(s model.Snapshot) []string {
	seen := make(map[string]struct{})
	customers := make([]string, 0, len(s.Customers))
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		customers = append(customers, name)
	}

	for _, name := range s.Customers {
		add(name)
	}
	for _, trip := range s.Trips {
		add(trip.Customer)
	}
	for _, invoice := range s.Invoices {
		add(invoice.Customer)
	}

	utils.SortStrings(customers)
	return customers
}

// registerCustomer adds name to the registry if it is new, keeping it sorted.
func registerCustomer(s *model.Snapshot, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, existing := range s.Customers {
		if existing == name {
			return false
		}
	}
	s.Customers = append(s.Customers, name)
	utils.SortStrings(s.Customers)
	return true
}

// idSet hands out record ids, replacing blank or duplicated ones per kind.
type idSet map[string]map[string]struct{}

func newIDSet() idSet {
	return idSet{}
}

func (s idSet) claim(kind, id string) string {
	seen, ok := s[kind]
	if !ok {
		seen = make(map[string]struct{})
		s[kind] = seen
	}
	id = strings.TrimSpace(id)
	if _, dup := seen[id]; id == "" || dup {
		id = newID()
	}
	seen[id] = struct{}{}
	return id
}
