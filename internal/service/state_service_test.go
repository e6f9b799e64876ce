package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleet-admin/internal/model"
	"fleet-admin/internal/repository"
)

func newTestStateService(t *testing.T) (*StateService, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "state.json")
	svc := NewStateService(repository.NewFileStateRepository(path), zerolog.Nop())
	svc.now = func() time.Time { return testToday }
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return svc, path
}

func TestStateServiceInitializeWritesDefaults(t *testing.T) {
	svc, path := newTestStateService(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("stored state is not JSON: %v", err)
	}
	if stored["nextTripNumber"] != float64(1) {
		t.Errorf("nextTripNumber = %v, want 1", stored["nextTripNumber"])
	}

	state, err := svc.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Fleet) != 0 || state.DashboardFilter.Mode != model.DashboardModeThisMonth {
		t.Errorf("state = %+v", state)
	}
}

func TestStateServiceInitializeKeepsExistingState(t *testing.T) {
	svc, _ := newTestStateService(t)
	ctx := context.Background()

	if _, err := svc.SaveState(ctx, []byte(`{"customers": ["Acme"]}`)); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	state, err := svc.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Customers) != 1 {
		t.Fatalf("Customers = %v, want [Acme]", state.Customers)
	}
}

func TestStateServiceSaveStateNormalizes(t *testing.T) {
	svc, _ := newTestStateService(t)
	ctx := context.Background()

	saved, err := svc.SaveState(ctx, []byte(`{
		"fleet": [{"unitId": "V1"}, {"unitId": "v1"}],
		"trips": [{"tripId": "TRIP-0009", "customer": "Globex"}]
	}`))
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if len(saved.Fleet) != 1 || saved.NextTripNumber != 10 {
		t.Fatalf("saved = %+v", saved)
	}

	loaded, err := svc.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if loaded.Fleet[0].ID != saved.Fleet[0].ID || loaded.NextTripNumber != 10 {
		t.Fatalf("loaded = %+v, want what was saved", loaded)
	}
}

func TestStateServiceSaveStateRejectsNonObjects(t *testing.T) {
	svc, _ := newTestStateService(t)
	ctx := context.Background()

	if _, err := svc.SaveState(ctx, []byte(`{"customers": ["Acme"]}`)); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	for _, payload := range []string{`[1]`, `"x"`, `not json`} {
		if _, err := svc.SaveState(ctx, []byte(payload)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("SaveState(%s) error = %v, want ErrInvalidInput", payload, err)
		}
	}

	state, err := svc.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Customers) != 1 {
		t.Fatalf("rejected payload overwrote the state: %+v", state)
	}
}

func TestStateServiceResetsCorruptState(t *testing.T) {
	svc, path := newTestStateService(t)
	ctx := context.Background()

	if err := os.WriteFile(path, []byte("{corrupt"), 0o644); err != nil {
		t.Fatalf("write corrupt state: %v", err)
	}
	state, err := svc.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.NextTripNumber != 1 {
		t.Fatalf("state = %+v, want defaults", state)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("corrupt file was not replaced: %s", data)
	}
}

func TestStateServiceResetsMissingState(t *testing.T) {
	svc, path := newTestStateService(t)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove state file: %v", err)
	}
	if _, err := svc.GetState(context.Background()); err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file was not recreated: %v", err)
	}
}

func TestStateServiceReconcile(t *testing.T) {
	svc, _ := newTestStateService(t)
	ctx := context.Background()

	_, err := svc.SaveState(ctx, []byte(`{
		"fleet": [{"unitId": "V1", "ownership": "rent-in", "supplier": "Acme"}],
		"trips": [{"tripId": "TRIP-0001", "vehicle": "V1", "status": "completed", "rentalCharges": 300}]
	}`))
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	result, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.InvoicesChanged != 1 || result.PaymentsChanged != 1 {
		t.Fatalf("result = %+v", result)
	}

	state, err := svc.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(state.Invoices) != 1 || state.Invoices[0].Amount != 300 {
		t.Fatalf("Invoices = %+v", state.Invoices)
	}

	again, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if again.Changed() {
		t.Fatalf("second Reconcile = %+v", again)
	}
}

func TestStateServiceDashboardOverridesStoredFilter(t *testing.T) {
	svc, _ := newTestStateService(t)
	ctx := context.Background()

	_, err := svc.SaveState(ctx, []byte(`{
		"trips": [{"tripId": "TRIP-0001", "date": "2023-06-01"}]
	}`))
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	stored, err := svc.Dashboard(ctx, nil)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stored.Trips.Total != 0 {
		t.Errorf("this month Trips = %+v, want none", stored.Trips)
	}

	custom, err := svc.Dashboard(ctx, &model.DashboardFilter{Mode: model.DashboardModeCustom, Start: "2023-01-01", End: "2023-12-31"})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if custom.Trips.Total != 1 {
		t.Errorf("custom Trips = %+v, want 1", custom.Trips)
	}
}
