package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API != DefaultAPIURL {
		t.Errorf("API = %q", cfg.API)
	}
	if cfg.Gateway.Host != DefaultGatewayHost || cfg.Gateway.Path != DefaultGatewayPath {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`{"gateway":{"host":"ws.local:8080","insecure":true},"reconnect":{"floor":"1s"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gateway.Host != "ws.local:8080" || !cfg.Gateway.Insecure {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
	if cfg.Gateway.Path != DefaultGatewayPath {
		t.Errorf("Gateway.Path = %q, want default", cfg.Gateway.Path)
	}
	if cfg.Reconnect.Floor != "1s" || cfg.Reconnect.Ceiling != "30s" {
		t.Errorf("Reconnect = %+v", cfg.Reconnect)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, FileName), []byte("{nope"), 0o644)
	if _, err := Load(dir); err == nil {
		t.Error("Load() accepted invalid JSON")
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	cfg.Reconnect.Floor = "not-a-duration"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a bad duration")
	}

	cfg = New()
	cfg.State.Backend = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted an unknown backend")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Gateway.Host = "example.net"
	path := filepath.Join(dir, FileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if loaded.Gateway.Host != "example.net" {
		t.Errorf("Gateway.Host = %q", loaded.Gateway.Host)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("45s", time.Second); got != 45*time.Second {
		t.Errorf("Duration(45s) = %v", got)
	}
	if got := Duration("junk", time.Second); got != time.Second {
		t.Errorf("Duration(junk) = %v, want fallback", got)
	}
}
