package repository

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by Load when nothing has been stored yet.
var ErrStateNotFound = errors.New("state not found")

// StateRepository stores the application state as one opaque JSON document.
// Decoding and normalization happen in the service layer.
type StateRepository interface {
	// Initialize prepares the backing storage and writes defaults when it is
	// empty. Existing data is left alone.
	Initialize(ctx context.Context, defaults []byte) error
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, payload []byte) error
}
