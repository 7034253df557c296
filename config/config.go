// Package config reads the TOML configuration of the contenthub daemon and
// command line tools.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/xraph/contenthub/api"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
)

// Config represents the main configuration for contenthub.
type Config struct {
	Listen    string `toml:"listen"`
	BasePath  string `toml:"base_path"`
	LogLevel  string `toml:"log_level"`  // "debug", "info", "warn" or "error"
	LogFormat string `toml:"log_format"` // "text" or "json"

	// SessionTTL is how long a paid view stays valid.
	SessionTTL          Duration `toml:"session_ttl"`
	PermissiveUploads   bool     `toml:"permissive_uploads"`
	PermissiveOwnership bool     `toml:"permissive_ownership"`

	Store    StoreConfig      `toml:"store"`
	Auth     AuthConfig       `toml:"auth"`
	Custody  CustodyConfig    `toml:"custody"`
	Index    IndexConfig      `toml:"index"`
	Metrics  MetricsConfig    `toml:"metrics"`
	Platform *platform.Config `toml:"platform,omitempty"`
}

// StoreConfig selects the ledger store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"`           // "memory", "sqlite" or "leveldb"
	Path string `toml:"path,omitempty"` // file (sqlite) or directory (leveldb)
}

// AuthConfig selects how wallet headers are verified.
type AuthConfig struct {
	Mode        string   `toml:"mode"` // "eth" or "insecure"
	NonceWindow Duration `toml:"nonce_window"`
}

// CustodyConfig configures the in-process balance book.
type CustodyConfig struct {
	// Metered makes the book refuse transfers the payer cannot cover.
	Metered bool `toml:"metered"`
	// Deposits credits addresses when the daemon starts.
	Deposits map[string]int64 `toml:"deposits,omitempty"`
}

// IndexConfig configures the in-process query index.
type IndexConfig struct {
	Enabled       bool     `toml:"enabled"`
	BatchSize     int      `toml:"batch_size"`
	FlushInterval Duration `toml:"flush_interval"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration for a local daemon.
func Default() *Config {
	return &Config{
		Listen:     "127.0.0.1:8080",
		BasePath:   api.DefaultBasePath,
		LogLevel:   "info",
		LogFormat:  "text",
		SessionTTL: Duration{session.DefaultTTL},
		Store:      StoreConfig{Type: "memory"},
		Auth:       AuthConfig{Mode: "eth", NonceWindow: Duration{caller.DefaultNonceWindow}},
		Index:      IndexConfig{BatchSize: 100, FlushInterval: Duration{5 * time.Second}},
		Metrics:    MetricsConfig{Path: "/metrics"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r on top of the defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes a Config to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the tagged unions and enumerations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Type {
	case "memory":
	case "sqlite", "leveldb":
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for %s", c.Store.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.type %q", c.Store.Type))
	}
	switch c.Auth.Mode {
	case "eth", "insecure":
	default:
		errs = append(errs, fmt.Errorf("unknown auth.mode %q", c.Auth.Mode))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	if c.SessionTTL.Duration <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.Platform != nil && (c.Platform.FeePercent < 0 || c.Platform.FeePercent > 100) {
		errs = append(errs, errors.New("platform.fee_percent must be between 0 and 100"))
	}
	for addr, amount := range c.Custody.Deposits {
		if amount < 0 {
			errs = append(errs, fmt.Errorf("custody.deposits[%s] must not be negative", addr))
		}
	}
	return errors.Join(errs...)
}

// Logger builds the slog logger described by the config.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", s)
	}
	return level, nil
}
