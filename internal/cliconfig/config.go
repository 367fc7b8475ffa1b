package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/pkg/retry"
)

// Store drivers understood by the CLI.
const (
	DriverMemory   = "memory"
	DriverFS       = "fs"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDriver is the store used when none is configured.
const DefaultDriver = DriverSQLite

// Config holds CLI configuration for workclock.
type Config struct {
	StoreDriver string
	StorePath   string
	StoreDSN    string

	RosterPath string
	Principal  string

	RetryAttempts int
	RetryInitial  time.Duration
	RetryMax      time.Duration

	WatchDebounce time.Duration

	MetricsTextfile string
	LogLevel        string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StoreDriver:   DefaultDriver,
		StorePath:     "", // Derived from the driver during Validate
		RosterPath:    "", // Derived from the home directory during Validate
		RetryAttempts: retry.DefaultMaxAttempts,
		RetryInitial:  retry.DefaultInitial,
		RetryMax:      retry.DefaultMax,
		WatchDebounce: 100 * time.Millisecond,
		LogLevel:      "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = DefaultDriver
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverFS:
		if c.StorePath == "" {
			c.StorePath = filepath.Join(DefaultHome(), "data")
		}
	case DriverSQLite:
		if c.StorePath == "" {
			c.StorePath = filepath.Join(DefaultHome(), "workclock.db")
		}
	case DriverPostgres:
		if c.StoreDSN == "" {
			return invalid("store-dsn is required for the postgres driver")
		}
	default:
		return invalid(fmt.Sprintf("unknown store driver %q", c.StoreDriver))
	}

	if c.RosterPath == "" {
		c.RosterPath = filepath.Join(DefaultHome(), "roster.toml")
	}

	if c.RetryAttempts <= 0 {
		return invalid("retry attempts must be positive")
	}
	if c.RetryInitial <= 0 {
		return invalid("retry backoff must be positive")
	}
	if c.RetryMax > 0 && c.RetryMax < c.RetryInitial {
		return invalid("retry max backoff must not be below the initial backoff")
	}
	if c.WatchDebounce <= 0 {
		return invalid("watch debounce must be positive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	return nil
}

// RetryPolicy builds the store retry policy from the retry settings.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.RetryAttempts,
		Backoff:     retry.Exponential(c.RetryInitial, c.RetryMax),
	}
}

// DefaultHome returns ~/.workclock, or .workclock when the home directory
// cannot be resolved.
func DefaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".workclock")
	}
	return ".workclock"
}

func invalid(msg string) error {
	return domain.E(domain.ErrInvalidConfig, "config", msg)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
