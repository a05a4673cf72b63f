package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOptions_Config(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sktalk.toml")
	content := `observer = "zap"

[server]
port = 7000
title = "from file"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	opts := &options{
		configFile: path,
		port:       7100,
		driver:     "sqlite",
		noHistory:  true,
		watch:      []string{"src"},
	}

	cfg, err := opts.config()
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}

	if cfg.Server.Port != 7100 {
		t.Errorf("got Server.Port %d, want 7100 (flag wins)", cfg.Server.Port)
	}
	if cfg.Server.Title != "from file" {
		t.Errorf("got Server.Title %q, want %q", cfg.Server.Title, "from file")
	}
	if cfg.Observer != "zap" {
		t.Errorf("got Observer %q, want %q", cfg.Observer, "zap")
	}
	if cfg.Memory.Driver != "sqlite" {
		t.Errorf("got Memory.Driver %q, want %q", cfg.Memory.Driver, "sqlite")
	}
	if !cfg.Memory.Disabled {
		t.Error("expected history persistence to be disabled")
	}
	if len(cfg.Watch.Paths) != 1 || cfg.Watch.Paths[0] != "src" {
		t.Errorf("got Watch.Paths %v, want [src]", cfg.Watch.Paths)
	}
}

func TestOptions_ConfigMissingFile(t *testing.T) {
	opts := &options{configFile: filepath.Join(t.TempDir(), "missing.json")}
	if _, err := opts.config(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, false).Info("hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output off a terminal: %v", err)
	}
	if record["msg"] != "hello" {
		t.Errorf("got msg %v, want hello", record["msg"])
	}

	buf.Reset()
	newLogger(&buf, false, true).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output on a terminal, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, false, true).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestBanner(t *testing.T) {
	got := banner("1.2.3", "http://localhost:9000/", []string{"a", "b"}, false)

	for _, want := range []string{"sktalk 1.2.3", "http://localhost:9000/", "watch a, b"} {
		if !strings.Contains(got, want) {
			t.Errorf("banner %q missing %q", got, want)
		}
	}

	if styled := banner("1.2.3", "http://localhost:9000/", nil, true); !strings.Contains(styled, "localhost:9000") {
		t.Errorf("styled banner %q missing url", styled)
	}
}

func TestRun_BadConfig(t *testing.T) {
	var stderr bytes.Buffer
	opts := &options{configFile: filepath.Join(t.TempDir(), "config.ini")}
	os.WriteFile(opts.configFile, []byte("x"), 0644)

	if err := run(context.Background(), opts, &stderr); err == nil {
		t.Fatal("expected error for unsupported config format")
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "host", "port", "title", "memory", "store", "no-history", "watch", "observer", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag %q", name)
		}
	}
}
