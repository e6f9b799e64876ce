package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"fleet-admin/internal/auth"
	"fleet-admin/internal/http/middleware"
	"fleet-admin/internal/repository"
	"fleet-admin/internal/service"
)

const testMaxBody = 1024

func newTestRouter(t *testing.T, authEnabled bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	stateService := service.NewStateService(
		repository.NewFileStateRepository(filepath.Join(t.TempDir(), "state.json")),
		log,
	)
	if err := stateService.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	creds, err := auth.NewCredentials("admin", "s3cret", "")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	authService := service.NewAuthService(
		authEnabled,
		"admin",
		creds,
		auth.NewIssuer("secret", time.Hour),
		auth.NewParser("secret"),
		repository.NewMemorySessionRepository(),
	)

	handler := NewHandler(stateService, authService, log)
	return NewRouter(handler, middleware.Auth(authService), RouterConfig{MaxBodyBytes: testMaxBody}, log)
}

func doRequest(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a JSON object: %v (%s)", err, w.Body.String())
	}
	return out
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/api/login", "", `{"username":"admin","password":"s3cret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, true)
	for _, path := range []string{"/api/health", "/healthz"} {
		w := doRequest(r, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		body := decodeBody(t, w)
		if body["status"] != "ok" || body["auth"] != "enabled" {
			t.Fatalf("%s body = %v", path, body)
		}
	}
}

func TestLogin(t *testing.T) {
	r := newTestRouter(t, true)

	tests := []struct {
		name    string
		body    string
		want    int
		wantErr string
	}{
		{"malformed body", `{"username":`, http.StatusBadRequest, "Invalid JSON body"},
		{"missing password", `{"username":"admin"}`, http.StatusBadRequest, "username and password are required"},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized, "invalid username or password"},
		{"valid", `{"username":"admin","password":"s3cret"}`, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/api/login", "", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			body := decodeBody(t, w)
			if tt.wantErr != "" && body["error"] != tt.wantErr {
				t.Fatalf("error = %v, want %q", body["error"], tt.wantErr)
			}
			if tt.wantErr == "" {
				user, _ := body["user"].(map[string]any)
				if body["token"] == "" || user["username"] != "admin" {
					t.Fatalf("body = %v", body)
				}
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t, true)

	for _, token := range []string{"", "garbage"} {
		w := doRequest(r, http.MethodGet, "/api/state", token, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d", token, w.Code)
		}
		if body := decodeBody(t, w); body["error"] != "Unauthorized" {
			t.Fatalf("body = %v", body)
		}
	}
}

func TestSessionAndLogout(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r)

	w := doRequest(r, http.MethodGet, "/api/session", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("session status = %d", w.Code)
	}
	user, _ := decodeBody(t, w)["user"].(map[string]any)
	if user["username"] != "admin" {
		t.Fatalf("session user = %v", user)
	}

	if w := doRequest(r, http.MethodPost, "/api/logout", token, ""); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/session", token, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("session after logout status = %d", w.Code)
	}
}

func TestStateRoundTrip(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r)

	w := doRequest(r, http.MethodGet, "/api/state", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["nextTripNumber"] != float64(1) {
		t.Fatalf("default state = %v", body)
	}

	payload := `{
		"fleet": [{"unitId": "V1", "ownership": "rent-in", "supplier": "Acme"}],
		"trips": [{"tripId": "TRIP-0005", "vehicle": "V1", "customer": "Globex"}]
	}`
	w = doRequest(r, http.MethodPut, "/api/state", token, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body.String())
	}
	saved := decodeBody(t, w)
	if saved["nextTripNumber"] != float64(6) {
		t.Fatalf("saved nextTripNumber = %v", saved["nextTripNumber"])
	}

	w = doRequest(r, http.MethodGet, "/api/state", token, "")
	loaded := decodeBody(t, w)
	customers, _ := loaded["customers"].([]any)
	if len(customers) != 1 || customers[0] != "Globex" {
		t.Fatalf("customers = %v", loaded["customers"])
	}
}

func TestPutStateRejectsNonObjects(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r)

	for _, payload := range []string{`[1,2,3]`, `"text"`, `{"broken"`} {
		w := doRequest(r, http.MethodPut, "/api/state", token, payload)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: status = %d", payload, w.Code)
		}
		if body := decodeBody(t, w); body["error"] != "Invalid payload. Expected a JSON object." {
			t.Fatalf("payload %s: body = %v", payload, body)
		}
	}
}

func TestPutStateTooLarge(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r)

	big := `{"customers":["` + strings.Repeat("x", testMaxBody) + `"]}`
	w := doRequest(r, http.MethodPut, "/api/state", token, big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Payload too large" {
		t.Fatalf("body = %v", body)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/state", bytes.NewReader([]byte(big)))
	req.ContentLength = -1
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("chunked body status = %d, want 413", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, true)
	w := doRequest(r, http.MethodGet, "/api/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Not Found" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthDisabled(t *testing.T) {
	r := newTestRouter(t, false)

	if body := decodeBody(t, doRequest(r, http.MethodGet, "/api/health", "", "")); body["auth"] != "disabled" {
		t.Fatalf("health = %v", body)
	}
	if w := doRequest(r, http.MethodGet, "/api/state", "", ""); w.Code != http.StatusOK {
		t.Fatalf("state without token status = %d", w.Code)
	}
}

func TestProjections(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r)

	payload := `{
		"fleet": [
			{"unitId": "V1", "ownership": "rent-in", "supplier": "Acme"},
			{"unitId": "V2", "ownership": "owned"}
		],
		"drivers": [
			{"name": "Ann", "affiliation": "supplier", "supplier": "Acme"},
			{"name": "Carl", "affiliation": "company"}
		],
		"trips": [{"tripId": "TRIP-0001", "vehicle": "V1", "date": "2023-05-02", "status": "completed"}],
		"invoices": [{"invoice": "INV-1", "amount": 10, "status": "Overdue"}]
	}`
	if w := doRequest(r, http.MethodPut, "/api/state", token, payload); w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", w.Code)
	}

	w := doRequest(r, http.MethodGet, "/api/suppliers/Acme/vehicles", token, "")
	if vehicles, _ := decodeBody(t, w)["vehicles"].([]any); len(vehicles) != 1 || vehicles[0] != "V1" {
		t.Errorf("vehicles = %s", w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/suppliers/acme/trips", token, "")
	if trips, _ := decodeBody(t, w)["trips"].([]any); len(trips) != 1 || trips[0] != "TRIP-0001" {
		t.Errorf("trips = %s", w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/drivers/eligible?vehicle=V2", token, "")
	if drivers, _ := decodeBody(t, w)["drivers"].([]any); len(drivers) != 1 {
		t.Errorf("eligible drivers = %s", w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/suppliers", token, "")
	if names, _ := decodeBody(t, w)["suppliers"].([]any); len(names) != 1 || names[0] != "Acme" {
		t.Errorf("suppliers = %s", w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/reports/invoices", token, "")
	if body := decodeBody(t, w); body["outstanding"] != float64(10) {
		t.Errorf("invoice report = %v", body)
	}

	w = doRequest(r, http.MethodGet, "/api/dashboard?mode=custom&start=2023-05-01&end=2023-05-31", token, "")
	trips, _ := decodeBody(t, w)["trips"].(map[string]any)
	if trips["total"] != float64(1) || trips["completed"] != float64(1) {
		t.Errorf("dashboard trips = %v", trips)
	}

	if w := doRequest(r, http.MethodGet, "/api/dashboard?mode=weekly", token, ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid mode status = %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	r := newTestRouter(t, true)
	token := login(t, r)

	w := doRequest(r, http.MethodGet, "/api/export", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "fleet-data-") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 7 {
		t.Fatalf("sheets = %v", sheets)
	}
}
