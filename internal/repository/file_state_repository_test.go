package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStateRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	repo := NewFileStateRepository(path)

	if _, err := repo.Load(ctx); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load before Initialize: error = %v, want ErrStateNotFound", err)
	}

	if err := repo.Initialize(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := repo.Initialize(ctx, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Initialize again: %v", err)
	}
	data, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("Initialize overwrote existing state: %s", data)
	}

	if err := repo.Store(ctx, []byte(`{"a":3}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	data, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != `{"a":3}` {
		t.Fatalf("Load = %s, want stored payload", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomicCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "token")
	if err := WriteFileAtomic(path, []byte("abc")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "abc" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
}
