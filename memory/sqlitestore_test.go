package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/sktalk/memory"
)

func newSQLiteStore(t *testing.T) *memory.SQLiteStore {
	t.Helper()
	store, err := memory.NewSQLiteStore(filepath.Join(t.TempDir(), "state", memory.SQLiteFile))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	if err := store.Save(ctx, memory.KeyHistory, []byte(`["a"]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, memory.KeyHistory, []byte(`["a","b"]`)); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}

	got, err := store.Load(ctx, memory.KeyHistory)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != `["a","b"]` {
		t.Errorf("Load() = %s, want %s", got, `["a","b"]`)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != memory.KeyHistory {
		t.Errorf("List() = %v, want [%s]", keys, memory.KeyHistory)
	}

	if err := store.Delete(ctx, memory.KeyHistory); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, memory.KeyHistory); !errors.Is(err, memory.ErrKeyNotFound) {
		t.Errorf("Load() after Delete error = %v, want %v", err, memory.ErrKeyNotFound)
	}
}

func TestSQLiteStore_InvalidKey(t *testing.T) {
	store := newSQLiteStore(t)

	if err := store.Save(context.Background(), "", nil); !errors.Is(err, memory.ErrInvalidKey) {
		t.Errorf("Save() error = %v, want %v", err, memory.ErrInvalidKey)
	}
	if _, err := store.Load(context.Background(), ""); !errors.Is(err, memory.ErrInvalidKey) {
		t.Errorf("Load() error = %v, want %v", err, memory.ErrInvalidKey)
	}
}

func TestSQLiteStore_JSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	if err := memory.SaveJSON(ctx, store, memory.KeyHistory, []string{"x", "y"}); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	var got []string
	ok, err := memory.LoadJSON(ctx, store, memory.KeyHistory, &got)
	if err != nil || !ok {
		t.Fatalf("LoadJSON() = %v, %v", ok, err)
	}
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("LoadJSON() = %v, want [x y]", got)
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), memory.SQLiteFile)

	first, err := memory.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := first.Save(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	first.Close()

	second, err := memory.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	got, err := second.Load(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Load() = %q, %v; want %q", got, err, "v")
	}
}
