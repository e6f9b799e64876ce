package service

import (
	"fmt"
	"strings"
	"time"

	"fleet-admin/internal/model"
	"fleet-admin/internal/utils"
)

const (
	invoiceNotes         = "Auto-generated from completed trip"
	supplierPaymentNotes = "Auto-generated from completed rent-in trip"
)

type ReconcileResult struct {
	InvoiceChanged bool `json:"invoiceChanged"`
	PaymentChanged bool `json:"paymentChanged"`
}

func (r ReconcileResult) Changed() bool {
	return r.InvoiceChanged || r.PaymentChanged
}

type SweepResult struct {
	TripsChecked    int `json:"tripsChecked"`
	InvoicesChanged int `json:"invoicesChanged"`
	PaymentsChanged int `json:"paymentsChanged"`
}

func (r SweepResult) Changed() bool {
	return r.InvoicesChanged > 0 || r.PaymentsChanged > 0
}

// Reconcile derives the invoice, and for rent-in units the supplier payment, of
// a completed trip. Existing documents linked to the trip are completed but
// their amount and due date only follow the trip while they are still Pending.
// Nothing is ever deleted.
func Reconcile(s *model.Snapshot, trip model.Trip, today time.Time) ReconcileResult {
	var result ReconcileResult
	if !trip.IsCompleted() || strings.TrimSpace(trip.TripID) == "" {
		return result
	}
	result.InvoiceChanged = ensureInvoice(s, trip, today)
	result.PaymentChanged = ensureSupplierPayment(s, trip, today)
	return result
}

// Sweep reconciles every trip. Running it twice in a row changes nothing the
// second time.
func Sweep(s *model.Snapshot, today time.Time) SweepResult {
	result := SweepResult{TripsChecked: len(s.Trips)}
	trips := append([]model.Trip{}, s.Trips...)
	for _, trip := range trips {
		r := Reconcile(s, trip, today)
		if r.InvoiceChanged {
			result.InvoicesChanged++
		}
		if r.PaymentChanged {
			result.PaymentsChanged++
		}
	}
	return result
}

func ensureInvoice(s *model.Snapshot, trip model.Trip, today time.Time) bool {
	amount := trip.RentalCharges
	dueDate := defaultDueDate(trip.Date, today)

	for i := range s.Invoices {
		existing := &s.Invoices[i]
		if existing.Trip != trip.TripID {
			continue
		}

		changed := false
		if existing.Invoice == "" {
			existing.Invoice = nextDocumentNumber(s, "INV", trip.TripID, invoiceNumberTaken(s))
			changed = true
		}
		if existing.Customer == "" && trip.Customer != "" {
			existing.Customer = trip.Customer
			registerCustomer(s, trip.Customer)
			changed = true
		}
		if existing.IsPending() {
			if existing.Amount != amount {
				existing.Amount = amount
				changed = true
			}
			if existing.DueDate == "" && dueDate != "" {
				existing.DueDate = dueDate
				changed = true
			}
		}
		return changed
	}

	invoice := model.Invoice{
		ID:       newID(),
		Invoice:  nextDocumentNumber(s, "INV", trip.TripID, invoiceNumberTaken(s)),
		Customer: trip.Customer,
		Trip:     trip.TripID,
		Amount:   amount,
		DueDate:  dueDate,
		Status:   model.PaymentStatusPending,
		Notes:    invoiceNotes,
	}
	s.Invoices = append([]model.Invoice{invoice}, s.Invoices...)
	registerCustomer(s, trip.Customer)
	return true
}

func ensureSupplierPayment(s *model.Snapshot, trip model.Trip, today time.Time) bool {
	resolver := NewResolver(*s)
	ownership := strings.ToLower(strings.TrimSpace(string(resolver.TripOwnership(trip))))
	if ownership != string(model.OwnershipRentIn) {
		return false
	}
	supplier := resolver.VehicleSupplier(trip.Vehicle)
	if supplier == "" {
		return false
	}

	amount := trip.RentalCharges
	dueDate := defaultDueDate(trip.Date, today)

	for i := range s.Suppliers {
		existing := &s.Suppliers[i]
		if existing.Trip != trip.TripID {
			continue
		}

		changed := false
		if existing.Reference == "" {
			existing.Reference = nextDocumentNumber(s, "SUP", trip.TripID, referenceTaken(s))
			changed = true
		}
		if existing.Supplier == "" {
			existing.Supplier = supplier
			changed = true
		}
		if existing.Vehicle == "" && trip.Vehicle != "" {
			existing.Vehicle = trip.Vehicle
			changed = true
		}
		if existing.IsPending() {
			if existing.Amount != amount {
				existing.Amount = amount
				changed = true
			}
			if existing.DueDate == "" && dueDate != "" {
				existing.DueDate = dueDate
				changed = true
			}
		}
		return changed
	}

	payment := model.SupplierPayment{
		ID:        newID(),
		Reference: nextDocumentNumber(s, "SUP", trip.TripID, referenceTaken(s)),
		Supplier:  supplier,
		Vehicle:   trip.Vehicle,
		Trip:      trip.TripID,
		Amount:    amount,
		DueDate:   dueDate,
		Status:    model.PaymentStatusPending,
		Notes:     supplierPaymentNotes,
	}
	s.Suppliers = append([]model.SupplierPayment{payment}, s.Suppliers...)
	return true
}

// nextDocumentNumber builds "<prefix>-<base>" and appends -1, -2, ... until the
// candidate is not taken.
func nextDocumentNumber(s *model.Snapshot, prefix, tripID string, taken func(string) bool) string {
	base := utils.SanitizeIdentifier(tripID, utils.FormatTripID(s.NextTripNumber))
	candidate := fmt.Sprintf("%s-%s", prefix, base)
	for suffix := 1; taken(candidate); suffix++ {
		candidate = fmt.Sprintf("%s-%s-%d", prefix, base, suffix)
	}
	return candidate
}

func invoiceNumberTaken(s *model.Snapshot) func(string) bool {
	return func(candidate string) bool {
		for _, invoice := range s.Invoices {
			if invoice.Invoice == candidate {
				return true
			}
		}
		return false
	}
}

func referenceTaken(s *model.Snapshot) func(string) bool {
	return func(candidate string) bool {
		for _, payment := range s.Suppliers {
			if payment.Reference == candidate {
				return true
			}
		}
		return false
	}
}

func defaultDueDate(tripDate string, today time.Time) string {
	if due := utils.DateString(tripDate, today.Location()); due != "" {
		return due
	}
	return today.Format(utils.DateLayout)
}
