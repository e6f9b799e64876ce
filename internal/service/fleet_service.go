package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fleet-admin/internal/model"
	"fleet-admin/internal/utils"
)

// PersistFunc receives the committed snapshot after every successful mutation.
type PersistFunc func(model.Snapshot)

// FleetService owns the working copy of the state on the client side. Every
// mutation is applied to a clone and committed only when it validates, so a
// rejected edit leaves the state untouched.
type FleetService struct {
	mu      sync.Mutex
	state   model.Snapshot
	persist PersistFunc
	now     func() time.Time
}

func NewFleetService(initial model.Snapshot, persist PersistFunc) *FleetService {
	return &FleetService{
		state:   Normalize(initial),
		persist: persist,
		now:     time.Now,
	}
}

// OnPersist replaces the persistence hook.
func (s *FleetService) OnPersist(fn PersistFunc) {
	s.mu.Lock()
	s.persist = fn
	s.mu.Unlock()
}

func (s *FleetService) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Replace swaps in a snapshot loaded from the cache or the server. It does not
// trigger persistence.
func (s *FleetService) Replace(snapshot model.Snapshot) {
	normalized := Normalize(snapshot)
	s.mu.Lock()
	s.state = normalized
	s.mu.Unlock()
}

func (s *FleetService) mutate(fn func(next *model.Snapshot) error) (model.Snapshot, error) {
	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return model.Snapshot{}, err
	}
	s.state = next
	persist := s.persist
	committed := next.Clone()
	s.mu.Unlock()

	if persist != nil {
		persist(committed)
	}
	return committed, nil
}

func (s *FleetService) SaveFleetUnit(unit model.FleetUnit) (model.FleetUnit, error) {
	unit.UnitID = strings.TrimSpace(unit.UnitID)
	if unit.UnitID == "" {
		return model.FleetUnit{}, fmt.Errorf("%w: unit id is required", ErrInvalidInput)
	}

	ownership := model.Ownership(strings.ToLower(strings.TrimSpace(string(unit.Ownership))))
	switch ownership {
	case "":
		ownership = model.OwnershipOwned
	case model.OwnershipOwned, model.OwnershipRentIn:
	default:
		return model.FleetUnit{}, fmt.Errorf("%w: unknown ownership %q", ErrInvalidInput, unit.Ownership)
	}
	unit.Ownership = ownership

	unit.Supplier = strings.TrimSpace(unit.Supplier)
	if ownership == model.OwnershipRentIn && unit.Supplier == "" {
		return model.FleetUnit{}, fmt.Errorf("%w: rent-in units need a supplier", ErrInvalidInput)
	}
	if ownership == model.OwnershipOwned {
		unit.Supplier = ""
	}

	_, err := s.mutate(func(next *model.Snapshot) error {
		key := utils.NormalizeUnitID(unit.UnitID)
		for _, existing := range next.Fleet {
			if existing.ID != unit.ID && utils.NormalizeUnitID(existing.UnitID) == key {
				return fmt.Errorf("%w: fleet unit %s already exists", ErrConflict, unit.UnitID)
			}
		}

		if unit.ID == "" {
			unit.ID = newID()
			next.Fleet = append([]model.FleetUnit{unit}, next.Fleet...)
			return nil
		}
		for i := range next.Fleet {
			if next.Fleet[i].ID == unit.ID {
				next.Fleet[i] = unit
				return nil
			}
		}
		return fmt.Errorf("%w: fleet unit %s", ErrNotFound, unit.ID)
	})
	if err != nil {
		return model.FleetUnit{}, err
	}
	return unit, nil
}

func (s *FleetService) SaveDriver(driver model.Driver) (model.Driver, error) {
	driver.Name = strings.TrimSpace(driver.Name)
	if driver.Name == "" {
		return model.Driver{}, fmt.Errorf("%w: driver name is required", ErrInvalidInput)
	}

	switch model.Affiliation(strings.ToLower(strings.TrimSpace(string(driver.Affiliation)))) {
	case "", model.AffiliationCompany:
		driver.Affiliation = model.AffiliationCompany
		driver.Supplier = ""
	case model.AffiliationSupplier:
		driver.Affiliation = model.AffiliationSupplier
		driver.Supplier = strings.TrimSpace(driver.Supplier)
		if driver.Supplier == "" {
			return model.Driver{}, fmt.Errorf("%w: supplier drivers need a supplier", ErrInvalidInput)
		}
	default:
		return model.Driver{}, fmt.Errorf("%w: unknown affiliation %q", ErrInvalidInput, driver.Affiliation)
	}

	_, err := s.mutate(func(next *model.Snapshot) error {
		if driver.ID == "" {
			driver.ID = newID()
			next.Drivers = append([]model.Driver{driver}, next.Drivers...)
			return nil
		}
		for i := range next.Drivers {
			if next.Drivers[i].ID == driver.ID {
				next.Drivers[i] = driver
				return nil
			}
		}
		return fmt.Errorf("%w: driver %s", ErrNotFound, driver.ID)
	})
	if err != nil {
		return model.Driver{}, err
	}
	return driver, nil
}

// SaveTrip creates or edits a trip and runs the financial automation for it.
// New trips draw their id from the counter; edits keep the existing id unless a
// new one is supplied.
func (s *FleetService) SaveTrip(trip model.Trip) (model.Trip, ReconcileResult, error) {
	var result ReconcileResult
	today := s.now()

	_, err := s.mutate(func(next *model.Snapshot) error {
		trip.Customer = strings.TrimSpace(trip.Customer)
		trip.Vehicle = strings.TrimSpace(trip.Vehicle)
		trip.UnitOwnership = VehicleOwnership(next.Fleet, trip.Vehicle)

		if trip.ID == "" {
			trip.ID = newID()
			trip.TripID = utils.FormatTripID(next.NextTripNumber)
			next.NextTripNumber++
			next.Trips = append([]model.Trip{trip}, next.Trips...)
		} else {
			index := -1
			for i := range next.Trips {
				if next.Trips[i].ID == trip.ID {
					index = i
					break
				}
			}
			if index < 0 {
				return fmt.Errorf("%w: trip %s", ErrNotFound, trip.ID)
			}
			trip.TripID = strings.TrimSpace(trip.TripID)
			if trip.TripID == "" {
				trip.TripID = next.Trips[index].TripID
			}
			for i, other := range next.Trips {
				if i != index && other.TripID != "" && other.TripID == trip.TripID {
					return fmt.Errorf("%w: trip %s already exists", ErrConflict, trip.TripID)
				}
			}
			next.Trips[index] = trip
		}

		registerCustomer(next, trip.Customer)
		result = Reconcile(next, trip, today)
		next.NextTripNumber = nextTripNumber(next.Trips, next.NextTripNumber)
		return nil
	})
	if err != nil {
		return model.Trip{}, ReconcileResult{}, err
	}
	return trip, result, nil
}

func (s *FleetService) SaveInvoice(invoice model.Invoice) (model.Invoice, error) {
	invoice.Invoice = strings.TrimSpace(invoice.Invoice)
	if invoice.Invoice == "" {
		return model.Invoice{}, fmt.Errorf("%w: invoice number is required", ErrInvalidInput)
	}
	invoice.Customer = strings.TrimSpace(invoice.Customer)
	if invoice.Status == "" {
		invoice.Status = model.PaymentStatusPending
	}

	_, err := s.mutate(func(next *model.Snapshot) error {
		for _, existing := range next.Invoices {
			if existing.ID != invoice.ID && existing.Invoice == invoice.Invoice {
				return fmt.Errorf("%w: invoice %s already exists", ErrConflict, invoice.Invoice)
			}
		}

		registerCustomer(next, invoice.Customer)
		if invoice.ID == "" {
			invoice.ID = newID()
			next.Invoices = append([]model.Invoice{invoice}, next.Invoices...)
			return nil
		}
		for i := range next.Invoices {
			if next.Invoices[i].ID == invoice.ID {
				next.Invoices[i] = invoice
				return nil
			}
		}
		return fmt.Errorf("%w: invoice %s", ErrNotFound, invoice.ID)
	})
	if err != nil {
		return model.Invoice{}, err
	}
	return invoice, nil
}

func (s *FleetService) SaveSupplierPayment(payment model.SupplierPayment) (model.SupplierPayment, error) {
	payment.Reference = strings.TrimSpace(payment.Reference)
	if payment.Reference == "" {
		return model.SupplierPayment{}, fmt.Errorf("%w: payment reference is required", ErrInvalidInput)
	}
	payment.Supplier = strings.TrimSpace(payment.Supplier)
	if payment.Supplier == "" {
		return model.SupplierPayment{}, fmt.Errorf("%w: supplier is required", ErrInvalidInput)
	}
	if payment.Status == "" {
		payment.Status = model.PaymentStatusPending
	}

	_, err := s.mutate(func(next *model.Snapshot) error {
		for _, existing := range next.Suppliers {
			if existing.ID != payment.ID && existing.Reference == payment.Reference {
				return fmt.Errorf("%w: payment %s already exists", ErrConflict, payment.Reference)
			}
		}

		if payment.ID == "" {
			payment.ID = newID()
			next.Suppliers = append([]model.SupplierPayment{payment}, next.Suppliers...)
			return nil
		}
		for i := range next.Suppliers {
			if next.Suppliers[i].ID == payment.ID {
				next.Suppliers[i] = payment
				return nil
			}
		}
		return fmt.Errorf("%w: supplier payment %s", ErrNotFound, payment.ID)
	})
	if err != nil {
		return model.SupplierPayment{}, err
	}
	return payment, nil
}

func (s *FleetService) SaveSupplierDirectoryEntry(entry model.SupplierDirectoryEntry) (model.SupplierDirectoryEntry, error) {
	entry.Name = strings.TrimSpace(entry.Name)
	if entry.Name == "" {
		return model.SupplierDirectoryEntry{}, fmt.Errorf("%w: supplier name is required", ErrInvalidInput)
	}

	_, err := s.mutate(func(next *model.Snapshot) error {
		if entry.ID == "" {
			entry.ID = newID()
			next.SupplierDirectory = append([]model.SupplierDirectoryEntry{entry}, next.SupplierDirectory...)
			return nil
		}
		for i := range next.SupplierDirectory {
			if next.SupplierDirectory[i].ID == entry.ID {
				next.SupplierDirectory[i] = entry
				return nil
			}
		}
		return fmt.Errorf("%w: supplier %s", ErrNotFound, entry.ID)
	})
	if err != nil {
		return model.SupplierDirectoryEntry{}, err
	}
	return entry, nil
}

func (s *FleetService) AddCustomer(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	_, err := s.mutate(func(next *model.Snapshot) error {
		registerCustomer(next, name)
		return nil
	})
	return err
}

func (s *FleetService) SetDashboardFilter(filter model.DashboardFilter) error {
	if !filter.Mode.Valid() {
		return fmt.Errorf("%w: unknown dashboard mode %q", ErrInvalidInput, filter.Mode)
	}
	if filter.Mode != model.DashboardModeCustom {
		filter.Start, filter.End = "", ""
	}
	_, err := s.mutate(func(next *model.Snapshot) error {
		next.DashboardFilter = filter
		return nil
	})
	return err
}

// Dashboard aggregates the current state with its stored filter.
func (s *FleetService) Dashboard() model.DashboardMetrics {
	snapshot := s.Snapshot()
	return Aggregate(snapshot, snapshot.DashboardFilter, s.now())
}

// ReconcileAll sweeps every trip and persists only when the sweep changed
// something.
func (s *FleetService) ReconcileAll() SweepResult {
	s.mu.Lock()
	next := s.state.Clone()
	result := Sweep(&next, s.now())
	if !result.Changed() {
		s.mu.Unlock()
		return result
	}
	s.state = next
	persist := s.persist
	committed := next.Clone()
	s.mu.Unlock()

	if persist != nil {
		persist(committed)
	}
	return result
}
