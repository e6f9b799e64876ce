package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleet-admin/internal/model"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *StateClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewStateClient(srv.URL + "/")
	c.backoff = time.Millisecond
	return c
}

func TestLoginAndFetchState(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/login":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["password"] != "s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"invalid username or password"}`)
				return
			}
			_, _ = io.WriteString(w, `{"token":"tok","user":{"username":"admin"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/state":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"trips":[{"tripId":"TRIP-0004"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	if _, err := c.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Login(wrong) error = %v, want ErrUnauthorized", err)
	}
	token, err := c.Login(ctx, "admin", "s3cret")
	if err != nil || token != "tok" {
		t.Fatalf("Login = %q, %v", token, err)
	}

	snapshot, err := c.FetchState(ctx, token)
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if len(snapshot.Trips) != 1 || snapshot.NextTripNumber != 5 {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	if _, err := c.FetchState(ctx, "other"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("FetchState(other) error = %v", err)
	}
}

func TestPushState(t *testing.T) {
	var received map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		_, _ = w.Write(body)
	})

	s := model.DefaultSnapshot()
	s.Customers = []string{"Acme"}
	saved, err := c.PushState(context.Background(), "tok", s)
	if err != nil {
		t.Fatalf("PushState: %v", err)
	}
	if len(saved.Customers) != 1 || received["customers"] == nil {
		t.Fatalf("saved = %+v, received = %v", saved, received)
	}
}

func TestStatusErrors(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = io.WriteString(w, `{"error":"Payload too large"}`)
	})

	_, err := c.PushState(context.Background(), "tok", model.DefaultSnapshot())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusRequestEntityTooLarge || statusErr.Message != "Payload too large" {
		t.Fatalf("statusErr = %+v", statusErr)
	}
}

func TestNetworkErrorsAreRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewStateClient(url)
	c.backoff = time.Millisecond

	_, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("Health succeeded against a closed server")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("network error reported as unauthorized: %v", err)
	}
}

func TestEmptyBaseURL(t *testing.T) {
	if _, err := NewStateClient("").Health(context.Background()); err == nil {
		t.Fatal("request without base URL succeeded")
	}
}
