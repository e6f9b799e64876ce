package service

import (
	"testing"
	"time"

	"fleet-admin/internal/model"
)

var testToday = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func rentInSnapshot() model.Snapshot {
	s := model.DefaultSnapshot()
	s.Fleet = []model.FleetUnit{
		{ID: "u1", UnitID: "V1", Ownership: model.OwnershipRentIn, Supplier: "Acme"},
		{ID: "u2", UnitID: "V2", Ownership: model.OwnershipOwned},
	}
	return Normalize(s)
}

func TestReconcileCreatesInvoiceAndSupplierPayment(t *testing.T) {
	s := rentInSnapshot()
	trip := model.Trip{
		ID:            "t1",
		TripID:        "TRIP-0001",
		Date:          "2024-03-10",
		Customer:      "Globex",
		Vehicle:       "v1",
		RentalCharges: 500,
		Status:        "Completed",
	}
	s.Trips = []model.Trip{trip}

	result := Reconcile(&s, trip, testToday)
	if !result.InvoiceChanged || !result.PaymentChanged {
		t.Fatalf("result = %+v, want both documents created", result)
	}

	if len(s.Invoices) != 1 {
		t.Fatalf("len(Invoices) = %d, want 1", len(s.Invoices))
	}
	inv := s.Invoices[0]
	if inv.Invoice != "INV-TRIP-0001" || inv.Customer != "Globex" || inv.Amount != 500 ||
		inv.DueDate != "2024-03-10" || inv.Status != model.PaymentStatusPending || inv.Notes != invoiceNotes {
		t.Errorf("invoice = %+v", inv)
	}

	if len(s.Suppliers) != 1 {
		t.Fatalf("len(Suppliers) = %d, want 1", len(s.Suppliers))
	}
	pay := s.Suppliers[0]
	if pay.Reference != "SUP-TRIP-0001" || pay.Supplier != "Acme" || pay.Vehicle != "v1" ||
		pay.Amount != 500 || pay.Status != model.PaymentStatusPending || pay.Notes != supplierPaymentNotes {
		t.Errorf("payment = %+v", pay)
	}

	if len(s.Customers) != 1 || s.Customers[0] != "Globex" {
		t.Errorf("Customers = %v, want [Globex]", s.Customers)
	}
}

func TestReconcileSkipsIncompleteAndOwned(t *testing.T) {
	tests := []struct {
		name        string
		trip        model.Trip
		wantInvoice bool
		wantPayment bool
	}{
		{
			name: "active trip",
			trip: model.Trip{TripID: "TRIP-0001", Vehicle: "V1", Status: "Scheduled", RentalCharges: 10},
		},
		{
			name: "missing trip id",
			trip: model.Trip{Vehicle: "V1", Status: "completed", RentalCharges: 10},
		},
		{
			name:        "owned vehicle",
			trip:        model.Trip{TripID: "TRIP-0002", Vehicle: "V2", Status: "completed", RentalCharges: 10},
			wantInvoice: true,
		},
		{
			name:        "unknown vehicle",
			trip:        model.Trip{TripID: "TRIP-0003", Vehicle: "X9", Status: "completed", RentalCharges: 10},
			wantInvoice: true,
		},
		{
			name:        "cached ownership wins over the fleet",
			trip:        model.Trip{TripID: "TRIP-0004", Vehicle: "V1", Status: "completed", UnitOwnership: model.OwnershipOwned},
			wantInvoice: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := rentInSnapshot()
			result := Reconcile(&s, tt.trip, testToday)
			if result.InvoiceChanged != tt.wantInvoice || result.PaymentChanged != tt.wantPayment {
				t.Fatalf("result = %+v, want invoice=%v payment=%v", result, tt.wantInvoice, tt.wantPayment)
			}
			if tt.wantInvoice != (len(s.Invoices) == 1) {
				t.Errorf("Invoices = %+v", s.Invoices)
			}
			if len(s.Suppliers) != 0 {
				t.Errorf("Suppliers = %+v, want none", s.Suppliers)
			}
		})
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	s := rentInSnapshot()
	s.Trips = []model.Trip{
		{ID: "t1", TripID: "TRIP-0001", Vehicle: "V1", Customer: "Globex", Status: "completed", RentalCharges: 100},
		{ID: "t2", TripID: "TRIP-0002", Vehicle: "V2", Customer: "Initech", Status: "completed", RentalCharges: 200},
		{ID: "t3", TripID: "TRIP-0003", Vehicle: "V2", Status: "active", RentalCharges: 300},
	}

	first := Sweep(&s, testToday)
	if first.TripsChecked != 3 || first.InvoicesChanged != 2 || first.PaymentsChanged != 1 {
		t.Fatalf("first sweep = %+v", first)
	}

	second := Sweep(&s, testToday)
	if second.Changed() {
		t.Fatalf("second sweep changed state: %+v", second)
	}
	if len(s.Invoices) != 2 || len(s.Suppliers) != 1 {
		t.Fatalf("documents duplicated: %d invoices, %d payments", len(s.Invoices), len(s.Suppliers))
	}
}

func TestReconcileNumbersCollidingBases(t *testing.T) {
	s := rentInSnapshot()
	s.Invoices = []model.Invoice{{ID: "i0", Invoice: "INV-A-B", Trip: "OTHER", Status: model.PaymentStatusPaid}}
	s.Trips = []model.Trip{
		{ID: "t1", TripID: "A-B", Status: "completed"},
		{ID: "t2", TripID: "A B", Status: "completed"},
		{ID: "t3", TripID: "A/B", Status: "completed"},
	}

	Sweep(&s, testToday)

	got := map[string]string{}
	for _, inv := range s.Invoices {
		got[inv.Trip] = inv.Invoice
	}
	want := map[string]string{
		"OTHER": "INV-A-B",
		"A-B":   "INV-A-B-1",
		"A B":   "INV-A-B-2",
		"A/B":   "INV-AB",
	}
	for trip, number := range want {
		if got[trip] != number {
			t.Errorf("invoice for %q = %q, want %q", trip, got[trip], number)
		}
	}
}

func TestReconcileRefreshesOnlyPendingDocuments(t *testing.T) {
	s := rentInSnapshot()
	trip := model.Trip{ID: "t1", TripID: "TRIP-0001", Vehicle: "V1", Date: "2024-03-01", Status: "completed", RentalCharges: 900}
	s.Trips = []model.Trip{trip}
	s.Invoices = []model.Invoice{{ID: "i1", Invoice: "INV-CUSTOM", Trip: "TRIP-0001", Amount: 500, Status: model.PaymentStatusPaid}}
	s.Suppliers = []model.SupplierPayment{{ID: "p1", Trip: "TRIP-0001", Amount: 500, Status: "pending"}}

	result := Reconcile(&s, trip, testToday)
	if result.InvoiceChanged {
		t.Errorf("paid invoice was modified: %+v", s.Invoices[0])
	}
	if s.Invoices[0].Amount != 500 || s.Invoices[0].Invoice != "INV-CUSTOM" {
		t.Errorf("invoice = %+v", s.Invoices[0])
	}

	if !result.PaymentChanged {
		t.Fatalf("pending payment was not refreshed")
	}
	pay := s.Suppliers[0]
	if pay.Amount != 900 || pay.DueDate != "2024-03-01" || pay.Reference != "SUP-TRIP-0001" ||
		pay.Supplier != "Acme" || pay.Vehicle != "V1" {
		t.Errorf("payment = %+v", pay)
	}
	if len(s.Suppliers) != 1 {
		t.Errorf("len(Suppliers) = %d, want 1", len(s.Suppliers))
	}
}

func TestReconcileDueDateFallsBackToToday(t *testing.T) {
	s := rentInSnapshot()
	trip := model.Trip{ID: "t1", TripID: "TRIP-0001", Date: "soon", Status: "completed"}
	Reconcile(&s, trip, testToday)
	if s.Invoices[0].DueDate != "2024-03-15" {
		t.Fatalf("DueDate = %q, want 2024-03-15", s.Invoices[0].DueDate)
	}
}
