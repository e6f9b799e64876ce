package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fleet-admin/internal/model"
	"fleet-admin/internal/service"
)

var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

type Health struct {
	Status string `json:"status"`
	Auth   string `json:"auth"`
}

type StateClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewStateClient(baseURL string) *StateClient {
	return &StateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

func (c *StateClient) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token.
func (c *StateClient) Login(ctx context.Context, username, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	body, err := c.do(ctx, http.MethodPost, "/api/login", "", payload)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return resp.Token, nil
}

func (c *StateClient) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", token, nil)
	return err
}

func (c *StateClient) Session(ctx context.Context, token string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/session", token, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse session response: %w", err)
	}
	return resp.User.Username, nil
}

func (c *StateClient) FetchState(ctx context.Context, token string) (model.Snapshot, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/state", token, nil)
	if err != nil {
		return model.Snapshot{}, err
	}
	snapshot, err := service.DecodeSnapshot(body)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to parse state: %w", err)
	}
	return snapshot, nil
}

// PushState replaces the remote state and returns the server's normalized copy.
func (c *StateClient) PushState(ctx context.Context, token string, snapshot model.Snapshot) (model.Snapshot, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return model.Snapshot{}, err
	}
	body, err := c.do(ctx, http.MethodPut, "/api/state", token, payload)
	if err != nil {
		return model.Snapshot{}, err
	}
	saved, err := service.DecodeSnapshot(body)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to parse state: %w", err)
	}
	return saved, nil
}

func (c *StateClient) Health(ctx context.Context) (Health, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/health", "", nil)
	if err != nil {
		return Health{}, err
	}
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, fmt.Errorf("failed to parse health response: %w", err)
	}
	return h, nil
}

// do executes the request, retrying network failures with a linear backoff.
// HTTP error responses are not retried.
func (c *StateClient) do(ctx context.Context, method, path, token string, payload []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("server URL is not configured")
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := c.newRequest(ctx, method, path, token, payload)
		if err != nil {
			return nil, err
		}
		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil || attempt == c.maxRetries-1 {
			return nil, fmt.Errorf("failed to execute request after %d attempts: %w", attempt+1, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
	if resp == nil {
		return nil, fmt.Errorf("failed to execute request: %w", lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func (c *StateClient) newRequest(ctx context.Context, method, path, token string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func errorMessage(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return strings.TrimSpace(string(body))
}
