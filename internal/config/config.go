// Package config loads fastlog's settings from a YAML file and the
// environment, and validates them against an embedded CUE schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvConfig = "FASTLOG_CONFIG"
	EnvDB     = "FASTLOG_DB"
	EnvZone   = "FASTLOG_ZONE"
	EnvUser   = "FASTLOG_USER"
)

// Defaults.
const (
	DefaultTxTimeout    = 5 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 50 * time.Millisecond
	DefaultPoolSize     = 4
	DefaultAfterDays    = 730
	DefaultBatchSize    = 1000
)

// Config holds fastlog's settings. Durations are kept in their text form
// ("5s", "50ms") as they appear in the file; use the accessor methods.
type Config struct {
	Database     string  `yaml:"database" json:"database"`
	DefaultZone  string  `yaml:"default_zone" json:"default_zone"`
	TxTimeout    string  `yaml:"tx_timeout" json:"tx_timeout"`
	MaxRetries   int     `yaml:"max_retries" json:"max_retries"`
	RetryBackoff string  `yaml:"retry_backoff" json:"retry_backoff"`
	PoolSize     int     `yaml:"pool_size" json:"pool_size"`
	Archive      Archive `yaml:"archive" json:"archive"`
}

// Archive configures the archival job.
type Archive struct {
	AfterDays int `yaml:"after_days" json:"after_days"`
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Database:     DefaultDatabasePath(),
		DefaultZone:  "UTC",
		TxTimeout:    DefaultTxTimeout.String(),
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff.String(),
		PoolSize:     DefaultPoolSize,
		Archive: Archive{
			AfterDays: DefaultAfterDays,
			BatchSize: DefaultBatchSize,
		},
	}
}

// Path returns the location of the config file: $FASTLOG_CONFIG, else
// $XDG_CONFIG_HOME/fastlog/config.yaml, else ~/.config/fastlog/config.yaml.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "fastlog", "config.yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config path: %w", err)
	}
	return filepath.Join(home, ".config", "fastlog", "config.yaml"), nil
}

// DefaultDatabasePath returns $XDG_DATA_HOME/fastlog/fastlog.db, else
// ~/.local/share/fastlog/fastlog.db, else fastlog.db in the working
// directory.
func DefaultDatabasePath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "fastlog", "fastlog.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "fastlog.db"
	}
	return filepath.Join(home, ".local", "share", "fastlog", "fastlog.db")
}

// Load reads configuration from path, applies environment overrides and
// validates the result. An empty path means Path(). A missing file at the
// default location yields defaults; a missing file that was asked for
// explicitly is an error.
func Load(path string) (Config, error) {
	explicit := path != "" || strings.TrimSpace(os.Getenv(EnvConfig)) != ""
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Default(), fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Default(), fmt.Errorf("read config: %w", err)
	}

	cfg = Normalize(ApplyEnv(cfg))
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// decode unmarshals YAML over cfg, so keys absent from the file keep their
// current values. Unknown keys are rejected.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides database and zone from the environment.
func ApplyEnv(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv(EnvDB)); v != "" {
		cfg.Database = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvZone)); v != "" {
		cfg.DefaultZone = v
	}
	return cfg
}

// Normalize trims text fields and fills empty ones with defaults.
func Normalize(cfg Config) Config {
	def := Default()
	cfg.Database = strings.TrimSpace(cfg.Database)
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	cfg.DefaultZone = strings.TrimSpace(cfg.DefaultZone)
	if cfg.DefaultZone == "" {
		cfg.DefaultZone = def.DefaultZone
	}
	cfg.TxTimeout = strings.TrimSpace(cfg.TxTimeout)
	if cfg.TxTimeout == "" {
		cfg.TxTimeout = def.TxTimeout
	}
	cfg.RetryBackoff = strings.TrimSpace(cfg.RetryBackoff)
	if cfg.RetryBackoff == "" {
		cfg.RetryBackoff = def.RetryBackoff
	}
	return cfg
}

// TxTimeoutDuration returns the parsed transaction timeout, falling back to
// DefaultTxTimeout.
func (c Config) TxTimeoutDuration() time.Duration {
	return parseDuration(c.TxTimeout, DefaultTxTimeout)
}

// RetryBackoffDuration returns the parsed retry backoff, falling back to
// DefaultRetryBackoff.
func (c Config) RetryBackoffDuration() time.Duration {
	return parseDuration(c.RetryBackoff, DefaultRetryBackoff)
}

// After returns the archive age threshold.
func (a Archive) After() time.Duration {
	return time.Duration(a.AfterDays) * 24 * time.Hour
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
