package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fleet-admin/internal/model"
	"fleet-admin/internal/repository"
	"fleet-admin/internal/service"
)

const (
	snapshotFile = "state.json"
	tokenFile    = "token"
)

// LocalCache keeps the last known snapshot and the auth token on disk so the
// CLI works offline and across invocations.
type LocalCache struct {
	dir   string
	state *repository.FileStateRepository
}

func NewLocalCache(dir string) *LocalCache {
	return &LocalCache{
		dir:   dir,
		state: repository.NewFileStateRepository(filepath.Join(dir, snapshotFile)),
	}
}

// LoadSnapshot returns the cached snapshot. ok is false when nothing usable is
// cached.
func (c *LocalCache) LoadSnapshot(ctx context.Context) (model.Snapshot, bool, error) {
	data, err := c.state.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, err
	}
	snapshot, err := service.DecodeSnapshot(data)
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("cached snapshot is unreadable: %w", err)
	}
	return snapshot, true, nil
}

func (c *LocalCache) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.state.Store(ctx, data)
}

func (c *LocalCache) LoadToken() string {
	data, err := os.ReadFile(filepath.Join(c.dir, tokenFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *LocalCache) SaveToken(token string) error {
	return repository.WriteFileAtomic(filepath.Join(c.dir, tokenFile), []byte(token))
}

func (c *LocalCache) ClearToken() error {
	err := os.Remove(filepath.Join(c.dir, tokenFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
