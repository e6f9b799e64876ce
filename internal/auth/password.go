package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultUsername = "admin"
	DefaultPassword = "admin"
)

// Credentials hold the single admin identity.
type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials builds credentials from a bcrypt hash when one is given and
// hashes the plain password otherwise.
func NewCredentials(username, password, passwordHash string) (*Credentials, error) {
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid password hash: %w", err)
		}
		return &Credentials{username: username, hash: []byte(passwordHash)}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &Credentials{username: username, hash: hash}, nil
}

func (c *Credentials) Username() string {
	return c.username
}

func (c *Credentials) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return userOK && passOK
}

// RandomSecret returns a hex-encoded 32 byte secret for signing tokens when
// none is configured.
func RandomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
