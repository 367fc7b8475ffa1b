package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (WORKCLOCK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("store", os.Getenv("WORKCLOCK_STORE"), &cfg.StoreDriver)
	s.setString("store-path", os.Getenv("WORKCLOCK_STORE_PATH"), &cfg.StorePath)
	s.setString("store-dsn", os.Getenv("WORKCLOCK_STORE_DSN"), &cfg.StoreDSN)
	s.setString("roster", os.Getenv("WORKCLOCK_ROSTER"), &cfg.RosterPath)
	s.setString("as", os.Getenv("WORKCLOCK_PRINCIPAL"), &cfg.Principal)
	s.setString("metrics-textfile", os.Getenv("WORKCLOCK_METRICS_TEXTFILE"), &cfg.MetricsTextfile)
	s.setString("log-level", os.Getenv("WORKCLOCK_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("retry-attempts", os.Getenv("WORKCLOCK_RETRY_ATTEMPTS"), &cfg.RetryAttempts); err != nil {
		return err
	}
	if err := s.setDuration("retry-initial", os.Getenv("WORKCLOCK_RETRY_INITIAL"), &cfg.RetryInitial); err != nil {
		return err
	}
	if err := s.setDuration("retry-max", os.Getenv("WORKCLOCK_RETRY_MAX"), &cfg.RetryMax); err != nil {
		return err
	}
	if err := s.setDuration("watch-debounce", os.Getenv("WORKCLOCK_WATCH_DEBOUNCE"), &cfg.WatchDebounce); err != nil {
		return err
	}

	return nil
}
