package memory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/tailored-agentic-units/sktalk/memory"
)

func TestFileStore_List_MissingRoot(t *testing.T) {
	store := memory.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	keys, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() returned %d keys, want 0", len(keys))
	}
}

func TestFileStore_List_SkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "history.json", "[]")
	writeTestFile(t, root, "sessions/a.json", "{}")
	writeTestFile(t, root, ".tmp-123", "partial")
	writeTestFile(t, root, ".cache/x.json", "{}")

	keys, err := memory.NewFileStore(root).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(keys)

	want := []string{"history.json", "sessions/a.json"}
	if len(keys) != len(want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestFileStore_Load_KeyNotFound(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())

	_, err := store.Load(context.Background(), "history.json")
	if !errors.Is(err, memory.ErrKeyNotFound) {
		t.Errorf("Load() error = %v, want %v", err, memory.ErrKeyNotFound)
	}
}

func TestFileStore_InvalidKey(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())

	for _, key := range []string{"", "../escape.json", "/abs.json"} {
		if err := store.Save(context.Background(), key, []byte("x")); !errors.Is(err, memory.ErrInvalidKey) {
			t.Errorf("Save(%q) error = %v, want %v", key, err, memory.ErrInvalidKey)
		}
	}
}

func TestFileStore_SaveOverwriteLoad(t *testing.T) {
	root := t.TempDir()
	store := memory.NewFileStore(root)
	ctx := context.Background()

	if err := store.Save(ctx, "nested/history.json", []byte("v1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "nested/history.json", []byte("v2")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "nested/history.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Load() = %q, want %q", got, "v2")
	}

	entries, err := os.ReadDir(filepath.Join(root, "nested"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("found %d files, want 1 (temp files must be renamed away)", len(entries))
	}
}

func TestFileStore_Delete(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "sessions/a.json", "{}")
	store := memory.NewFileStore(root)

	if err := store.Delete(context.Background(), "sessions/a.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sessions")); !os.IsNotExist(err) {
		t.Error("empty parent directory should be removed after Delete")
	}
	if err := store.Delete(context.Background(), "sessions/a.json"); err != nil {
		t.Errorf("Delete() error = %v, want nil for missing key", err)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())
	ctx := context.Background()

	want := []string{"1+1", "x := 2"}
	if err := memory.SaveJSON(ctx, store, memory.KeyHistory, want); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}

	var got []string
	ok, err := memory.LoadJSON(ctx, store, memory.KeyHistory, &got)
	if err != nil || !ok {
		t.Fatalf("LoadJSON() = %v, %v; want true, nil", ok, err)
	}
	if len(got) != 2 || got[0] != "1+1" || got[1] != "x := 2" {
		t.Errorf("LoadJSON() = %v, want %v", got, want)
	}
}

func TestLoadJSON_MissingOrCorrupt(t *testing.T) {
	root := t.TempDir()
	store := memory.NewFileStore(root)
	ctx := context.Background()

	got := []string{"default"}
	ok, err := memory.LoadJSON(ctx, store, memory.KeyHistory, &got)
	if err != nil || ok {
		t.Errorf("LoadJSON(missing) = %v, %v; want false, nil", ok, err)
	}

	writeTestFile(t, root, memory.KeyHistory, "{not json")
	ok, err = memory.LoadJSON(ctx, store, memory.KeyHistory, &got)
	if err != nil || ok {
		t.Errorf("LoadJSON(corrupt) = %v, %v; want false, nil", ok, err)
	}
	if len(got) != 1 || got[0] != "default" {
		t.Errorf("LoadJSON should leave target untouched, got %v", got)
	}
}

func writeTestFile(t *testing.T, root, key, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}
