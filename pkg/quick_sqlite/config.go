package quick_sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/wemcdonald/quick_sqlite/internal/engine"
)

const (
	// MemoryPath opens a transient database that vanishes on Close.
	MemoryPath = engine.MemoryPath

	DriverCGO  = engine.DriverCGO
	DriverPure = engine.DriverPure

	DefaultReconnectLimit = 3
	DefaultLockTimeout    = 5 * time.Second
)

// Config holds the configuration for a Connection
type Config struct {
	Path   string
	Driver string

	// AutoCommit persists every mutating operation immediately. When false,
	// mutations collect in a transaction ended by Commit or Rollback.
	AutoCommit bool

	ReconnectLimit int
	AutoConnect    bool

	// RequireConnect makes Connect return a ConnectError when the initial
	// open and every reconnection attempt fail.
	RequireConnect bool

	LockTimeout time.Duration
	Backoff     BackoffConfig

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		Driver:         DriverCGO,
		AutoCommit:     true,
		ReconnectLimit: DefaultReconnectLimit,
		LockTimeout:    DefaultLockTimeout,
	}
}

func (c Config) validate() error {
	if c.Path == "" {
		return &DBError{Code: CodeInvalidConfig, Message: "database path is required"}
	}
	if c.Driver != "" && !engine.SupportedDriver(c.Driver) {
		return &DBError{Code: CodeInvalidConfig, Message: fmt.Sprintf("unsupported driver %q", c.Driver)}
	}
	if c.ReconnectLimit <= 0 {
		return &DBError{Code: CodeInvalidConfig, Message: fmt.Sprintf("reconnect limit must be positive, got %d", c.ReconnectLimit)}
	}
	if c.LockTimeout < 0 {
		return &DBError{Code: CodeInvalidConfig, Message: fmt.Sprintf("lock timeout must not be negative, got %s", c.LockTimeout)}
	}
	if _, err := c.Backoff.Policy(c.ReconnectLimit); err != nil {
		return &DBError{Code: CodeInvalidConfig, Message: "invalid backoff", Err: err}
	}
	return nil
}

// fileConfig is the on-disk form of Config. Pointer fields distinguish
// "absent" from zero values so a file only overrides what it sets.
type fileConfig struct {
	Path           *string            `json:"path,omitempty"`
	Driver         *string            `json:"driver,omitempty"`
	AutoCommit     *bool              `json:"auto_commit,omitempty"`
	ReconnectLimit *int               `json:"reconnect_limit,omitempty"`
	AutoConnect    *bool              `json:"auto_connect,omitempty"`
	RequireConnect *bool              `json:"require_connect,omitempty"`
	LockTimeout    *string            `json:"lock_timeout,omitempty"`
	Backoff        *fileBackoffConfig `json:"backoff,omitempty"`
}

type fileBackoffConfig struct {
	Kind     string `json:"kind,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// LoadConfig reads a HuJSON (JSON with comments and trailing commas) config
// file and overlays it on DefaultConfig(MemoryPath).
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &DBError{Code: CodeConfigRead, Message: fmt.Sprintf("failed to read config %s", path), Err: err}
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig parses HuJSON config data and overlays it on
// DefaultConfig(MemoryPath).
func ParseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, &DBError{Code: CodeInvalidConfig, Message: "invalid JSONC", Err: err}
	}

	var fc fileConfig
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return Config{}, &DBError{Code: CodeInvalidConfig, Message: "invalid JSON", Err: err}
	}

	cfg, err := mergeConfig(DefaultConfig(MemoryPath), fc)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeConfig(base Config, overlay fileConfig) (Config, error) {
	if overlay.Path != nil {
		base.Path = *overlay.Path
	}
	if overlay.Driver != nil {
		base.Driver = *overlay.Driver
	}
	if overlay.AutoCommit != nil {
		base.AutoCommit = *overlay.AutoCommit
	}
	if overlay.ReconnectLimit != nil {
		base.ReconnectLimit = *overlay.ReconnectLimit
	}
	if overlay.AutoConnect != nil {
		base.AutoConnect = *overlay.AutoConnect
	}
	if overlay.RequireConnect != nil {
		base.RequireConnect = *overlay.RequireConnect
	}
	if overlay.LockTimeout != nil {
		d, err := time.ParseDuration(*overlay.LockTimeout)
		if err != nil {
			return Config{}, &DBError{Code: CodeInvalidConfig, Message: "invalid lock_timeout", Err: err}
		}
		base.LockTimeout = d
	}
	if overlay.Backoff != nil {
		base.Backoff.Kind = overlay.Backoff.Kind
		base.Backoff.Interval = 0
		if overlay.Backoff.Interval != "" {
			d, err := time.ParseDuration(overlay.Backoff.Interval)
			if err != nil {
				return Config{}, &DBError{Code: CodeInvalidConfig, Message: "invalid backoff interval", Err: err}
			}
			base.Backoff.Interval = d
		}
	}
	return base, nil
}

// SaveConfig writes cfg to path as indented JSON, replacing the file
// atomically.
func SaveConfig(path string, cfg Config) error {
	lockTimeout := cfg.LockTimeout.String()
	fc := fileConfig{
		Path:           &cfg.Path,
		Driver:         &cfg.Driver,
		AutoCommit:     &cfg.AutoCommit,
		ReconnectLimit: &cfg.ReconnectLimit,
		AutoConnect:    &cfg.AutoConnect,
		RequireConnect: &cfg.RequireConnect,
		LockTimeout:    &lockTimeout,
	}
	if cfg.Backoff != (BackoffConfig{}) {
		fc.Backoff = &fileBackoffConfig{Kind: cfg.Backoff.Kind}
		if cfg.Backoff.Interval != 0 {
			fc.Backoff.Interval = cfg.Backoff.Interval.String()
		}
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return &DBError{Code: CodeConfigWrite, Message: "failed to encode config", Err: err}
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return &DBError{Code: CodeConfigWrite, Message: fmt.Sprintf("failed to write config %s", path), Err: err}
	}
	return nil
}
