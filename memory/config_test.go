package memory_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/sktalk/memory"
)

func TestDefaultConfig(t *testing.T) {
	cfg := memory.DefaultConfig()

	if cfg.Disabled {
		t.Error("default config should not be disabled")
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := memory.DefaultConfig()

	source := &memory.Config{Path: "/data/sktalk"}
	cfg.Merge(source)

	if cfg.Path != "/data/sktalk" {
		t.Errorf("got Path %q, want %q", cfg.Path, "/data/sktalk")
	}
}

func TestConfig_Merge_EmptyPreservesDefault(t *testing.T) {
	cfg := memory.Config{Path: "/original"}

	cfg.Merge(&memory.Config{})

	if cfg.Path != "/original" {
		t.Errorf("got Path %q, want %q (preserved)", cfg.Path, "/original")
	}
	if cfg.Disabled {
		t.Error("empty merge should not disable the store")
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     memory.Config
		wantNil bool
	}{
		{name: "empty path", cfg: memory.Config{}, wantNil: true},
		{name: "disabled", cfg: memory.Config{Path: t.TempDir(), Disabled: true}, wantNil: true},
		{name: "with path", cfg: memory.Config{Path: t.TempDir()}, wantNil: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := memory.NewStore(&tt.cfg)
			if err != nil {
				t.Fatalf("NewStore failed: %v", err)
			}
			if (store == nil) != tt.wantNil {
				t.Errorf("NewStore() nil = %v, want %v", store == nil, tt.wantNil)
			}
		})
	}
}

func TestNewStore_Drivers(t *testing.T) {
	dir := t.TempDir()

	store, err := memory.NewStore(&memory.Config{Path: dir, Driver: memory.DriverSQLite})
	if err != nil {
		t.Fatalf("NewStore(sqlite) failed: %v", err)
	}
	sqlite, ok := store.(*memory.SQLiteStore)
	if !ok {
		t.Fatalf("NewStore(sqlite) = %T, want *memory.SQLiteStore", store)
	}
	sqlite.Close()

	_, err = memory.NewStore(&memory.Config{Path: dir, Driver: "etcd"})
	if !errors.Is(err, memory.ErrUnknownDriver) {
		t.Errorf("NewStore(etcd) error = %v, want %v", err, memory.ErrUnknownDriver)
	}
}

func TestConfig_Merge_Driver(t *testing.T) {
	cfg := memory.DefaultConfig()
	if cfg.Driver != memory.DriverFile {
		t.Errorf("got default Driver %q, want %q", cfg.Driver, memory.DriverFile)
	}

	cfg.Merge(&memory.Config{Driver: memory.DriverSQLite})
	if cfg.Driver != memory.DriverSQLite {
		t.Errorf("got Driver %q, want %q", cfg.Driver, memory.DriverSQLite)
	}
}
