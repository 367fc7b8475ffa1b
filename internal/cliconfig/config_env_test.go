package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"WORKCLOCK_STORE":            "postgres",
				"WORKCLOCK_STORE_DSN":        "postgres://db/wc",
				"WORKCLOCK_ROSTER":           "/etc/roster.toml",
				"WORKCLOCK_PRINCIPAL":        "alice",
				"WORKCLOCK_RETRY_ATTEMPTS":   "5",
				"WORKCLOCK_RETRY_INITIAL":    "2s",
				"WORKCLOCK_RETRY_MAX":        "1m",
				"WORKCLOCK_WATCH_DEBOUNCE":   "250ms",
				"WORKCLOCK_METRICS_TEXTFILE": "/tmp/wc.prom",
				"WORKCLOCK_LOG_LEVEL":        "error",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				StoreDriver:     "postgres",
				StoreDSN:        "postgres://db/wc",
				RosterPath:      "/etc/roster.toml",
				Principal:       "alice",
				RetryAttempts:   5,
				RetryInitial:    2 * time.Second,
				RetryMax:        time.Minute,
				WatchDebounce:   250 * time.Millisecond,
				MetricsTextfile: "/tmp/wc.prom",
				LogLevel:        "error",
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"WORKCLOCK_STORE_PATH": "/env/data",
				"WORKCLOCK_PRINCIPAL":  "env-user",
			},
			changed: map[string]bool{"as": true},
			initial: Config{
				Principal: "flag-user",
			},
			expected: Config{
				StorePath: "/env/data",
				Principal: "flag-user",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"WORKCLOCK_RETRY_MAX": "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"WORKCLOCK_RETRY_ATTEMPTS": "not-a-number",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "ignores non-positive attempts",
			envVars: map[string]string{
				"WORKCLOCK_RETRY_ATTEMPTS": "0",
			},
			changed:  map[string]bool{},
			initial:  Config{RetryAttempts: 3},
			expected: Config{RetryAttempts: 3},
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestApplyEnvConfig_OverridesFile(t *testing.T) {
	t.Setenv("WORKCLOCK_STORE", "fs")

	cfg := DefaultConfig()
	changed := map[string]bool{}
	if err := ApplyFileConfig(&cfg, FileConfig{Store: StoreSection{Driver: "sqlite"}}, changed); err != nil {
		t.Fatal(err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != "fs" {
		t.Errorf("StoreDriver = %v, want env value fs", cfg.StoreDriver)
	}
}
