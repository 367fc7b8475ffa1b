package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Store   StoreSection   `toml:"store"`
	Retry   RetrySection   `toml:"retry"`
	Roster  string         `toml:"roster"`
	User    string         `toml:"principal"`
	Metrics MetricsSection `toml:"metrics"`

	WatchDebounce string `toml:"watch_debounce"`
	LogLevel      string `toml:"log_level"`
}

// StoreSection is the [store] table.
type StoreSection struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// RetrySection is the [retry] table.
type RetrySection struct {
	Attempts int    `toml:"attempts"`
	Initial  string `toml:"initial"`
	Max      string `toml:"max"`
}

// MetricsSection is the [metrics] table.
type MetricsSection struct {
	Textfile string `toml:"textfile"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.workclock/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".workclock", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("store", fc.Store.Driver, &cfg.StoreDriver)
	s.setString("store-path", fc.Store.Path, &cfg.StorePath)
	s.setString("store-dsn", fc.Store.DSN, &cfg.StoreDSN)
	s.setString("roster", fc.Roster, &cfg.RosterPath)
	s.setString("as", fc.User, &cfg.Principal)
	s.setString("metrics-textfile", fc.Metrics.Textfile, &cfg.MetricsTextfile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("retry-attempts", fc.Retry.Attempts, &cfg.RetryAttempts)

	if err := s.setDuration("retry-initial", fc.Retry.Initial, &cfg.RetryInitial); err != nil {
		return err
	}
	if err := s.setDuration("retry-max", fc.Retry.Max, &cfg.RetryMax); err != nil {
		return err
	}
	if err := s.setDuration("watch-debounce", fc.WatchDebounce, &cfg.WatchDebounce); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
