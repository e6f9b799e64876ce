package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-admin/internal/auth"
	"fleet-admin/internal/model"
	"fleet-admin/internal/repository"
)

type LoginResult struct {
	Token    string
	Username string
}

// AuthService manages the single admin identity and its sessions. With auth
// disabled every request is treated as the configured admin and login hands
// out a token without checking the password.
type AuthService struct {
	enabled     bool
	username    string
	credentials *auth.Credentials
	issuer      *auth.Issuer
	parser      *auth.Parser
	sessions    repository.SessionRepository
	now         func() time.Time
}

func NewAuthService(
	enabled bool,
	username string,
	credentials *auth.Credentials,
	issuer *auth.Issuer,
	parser *auth.Parser,
	sessions repository.SessionRepository,
) *AuthService {
	return &AuthService{
		enabled:     enabled,
		username:    username,
		credentials: credentials,
		issuer:      issuer,
		parser:      parser,
		sessions:    sessions,
		now:         time.Now,
	}
}

func (s *AuthService) Enabled() bool {
	return s.enabled
}

func (s *AuthService) Username() string {
	return s.username
}

func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if s.enabled && (s.credentials == nil || !s.credentials.Verify(username, password)) {
		return LoginResult{}, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}

	now := s.now()
	sessionID := newID()
	token, expiresAt, err := s.issuer.Issue(username, sessionID, now)
	if err != nil {
		return LoginResult{}, err
	}
	session := model.Session{ID: sessionID, Username: username, ExpiresAt: expiresAt}
	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}
	return LoginResult{Token: token, Username: username}, nil
}

// Authenticate resolves a bearer token to the principal behind it. The token
// must be valid and its session must still exist.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	if !s.enabled {
		return model.Principal{Username: s.username}, nil
	}
	if token == "" {
		return model.Principal{}, ErrUnauthorized
	}

	claims, err := s.parser.Parse(token)
	if err != nil {
		return model.Principal{}, ErrUnauthorized
	}
	session, err := s.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.Principal{}, ErrUnauthorized
		}
		return model.Principal{}, err
	}
	return model.Principal{Username: session.Username, SessionID: session.ID}, nil
}

func (s *AuthService) Logout(ctx context.Context, principal model.Principal) error {
	if principal.SessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, principal.SessionID)
}
