// Package config loads the client's lantern.json configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileName is the name of the configuration file.
	FileName = "lantern.json"

	// DefaultAPIURL is the gateway REST origin.
	DefaultAPIURL = "https://api.lantern.example"

	// DefaultGatewayHost is the realtime stream host.
	DefaultGatewayHost = "stream.lantern.example"

	// DefaultGatewayPath is the realtime stream path.
	DefaultGatewayPath = "/stream"
)

// Config is the complete lantern.json configuration.
type Config struct {
	// API is the REST origin for session calls.
	API string `json:"api,omitempty"`

	// Gateway holds the realtime stream endpoint.
	Gateway GatewayConfig `json:"gateway,omitempty"`

	// Reconnect tunes the backoff ladder.
	Reconnect ReconnectConfig `json:"reconnect,omitempty"`

	// Heartbeat tunes the read-state flush cadence.
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`

	// State configures session persistence.
	State StateConfig `json:"state,omitempty"`

	// Upload configures the attachment spool.
	Upload UploadConfig `json:"upload,omitempty"`

	// Debug configures the local debug HTTP server.
	Debug DebugConfig `json:"debug,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// GatewayConfig is the realtime stream endpoint.
type GatewayConfig struct {
	// Host is the gateway hostname, with optional port.
	Host string `json:"host,omitempty"`

	// Path is the stream path.
	Path string `json:"path,omitempty"`

	// Insecure disables TLS. Only for local test gateways.
	Insecure bool `json:"insecure,omitempty"`
}

// ReconnectConfig tunes the backoff ladder.
type ReconnectConfig struct {
	// Floor is the first retry delay (e.g. "500ms").
	Floor string `json:"floor,omitempty"`

	// Ceiling caps the retry delay (e.g. "30s").
	Ceiling string `json:"ceiling,omitempty"`

	// StableAfter resets the ladder once a connection holds this
	// long (e.g. "60s").
	StableAfter string `json:"stableAfter,omitempty"`
}

// HeartbeatConfig tunes the heartbeat cadence.
type HeartbeatConfig struct {
	// Interval is the foreground cadence (e.g. "30s").
	Interval string `json:"interval,omitempty"`

	// IdleInterval is the background cadence (e.g. "2m").
	IdleInterval string `json:"idleInterval,omitempty"`
}

// StateConfig configures session persistence.
type StateConfig struct {
	// Backend selects the store: "disk", "badger", or "memory".
	Backend string `json:"backend,omitempty"`

	// Dir is where the backend keeps its files.
	Dir string `json:"dir,omitempty"`
}

// UploadConfig configures the attachment spool.
type UploadConfig struct {
	// Dir is the disk spool directory.
	Dir string `json:"dir,omitempty"`

	// MaxSizeMB caps attachment size.
	MaxSizeMB int `json:"maxSizeMB,omitempty"`

	// S3Bucket switches the spool to S3 when set.
	S3Bucket string `json:"s3Bucket,omitempty"`

	// S3Prefix is the key prefix within the bucket.
	S3Prefix string `json:"s3Prefix,omitempty"`
}

// DebugConfig configures the local debug HTTP server.
type DebugConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr string `json:"addr,omitempty"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		API: DefaultAPIURL,
		Gateway: GatewayConfig{
			Host: DefaultGatewayHost,
			Path: DefaultGatewayPath,
		},
		Reconnect: ReconnectConfig{
			Floor:       "500ms",
			Ceiling:     "30s",
			StableAfter: "60s",
		},
		Heartbeat: HeartbeatConfig{
			Interval:     "30s",
			IdleInterval: "2m",
		},
		State: StateConfig{
			Backend: "disk",
			Dir:     defaultStateDir(),
		},
		Upload: UploadConfig{
			Dir:       filepath.Join(defaultStateDir(), "uploads"),
			MaxSizeMB: 10,
		},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lantern")
	}
	return ".lantern"
}

// Load reads lantern.json from dir. A missing file yields the
// defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads configuration from path. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Path returns where the config was loaded from, if anywhere.
func (c *Config) Path() string { return c.configPath }

func (c *Config) applyDefaults() {
	def := New()
	if c.API == "" {
		c.API = def.API
	}
	if c.Gateway.Host == "" {
		c.Gateway.Host = def.Gateway.Host
	}
	if c.Gateway.Path == "" {
		c.Gateway.Path = def.Gateway.Path
	}
	if c.Reconnect.Floor == "" {
		c.Reconnect.Floor = def.Reconnect.Floor
	}
	if c.Reconnect.Ceiling == "" {
		c.Reconnect.Ceiling = def.Reconnect.Ceiling
	}
	if c.Reconnect.StableAfter == "" {
		c.Reconnect.StableAfter = def.Reconnect.StableAfter
	}
	if c.Heartbeat.Interval == "" {
		c.Heartbeat.Interval = def.Heartbeat.Interval
	}
	if c.Heartbeat.IdleInterval == "" {
		c.Heartbeat.IdleInterval = def.Heartbeat.IdleInterval
	}
	if c.State.Backend == "" {
		c.State.Backend = def.State.Backend
	}
	if c.State.Dir == "" {
		c.State.Dir = def.State.Dir
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = def.Upload.Dir
	}
	if c.Upload.MaxSizeMB <= 0 {
		c.Upload.MaxSizeMB = def.Upload.MaxSizeMB
	}
}

// Validate checks the duration fields and backend name.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"reconnect.floor":        c.Reconnect.Floor,
		"reconnect.ceiling":      c.Reconnect.Ceiling,
		"reconnect.stableAfter":  c.Reconnect.StableAfter,
		"heartbeat.interval":     c.Heartbeat.Interval,
		"heartbeat.idleInterval": c.Heartbeat.IdleInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	switch c.State.Backend {
	case "disk", "badger", "memory":
	default:
		return fmt.Errorf("config: unknown state backend %q", c.State.Backend)
	}
	return nil
}

// Duration parses a duration field already checked by Validate.
func Duration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
