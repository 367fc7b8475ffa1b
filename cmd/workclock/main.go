package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/workclock/internal/cliconfig"
	"github.com/bft-labs/workclock/pkg/log"
)

const helpDescription = `
Track time spent on maintenance tickets and production tasks.

Highlights:
  - Start, pause, resume and stop a work order timer; stats are always derived from the event log.
  - Production tasks record a quantity checkpoint at every pause and stop.
  - Parts consumed by a work order update the part inventory history.
  - Stores: sqlite (default), fs, postgres or memory; configure via file, env, or flags.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  workclock --as alice save --kind production --description "Cut 40 brackets"
  workclock --as alice start <id>
  workclock --as alice pause <id> --quantity 12 --unit pcs
  workclock --store fs --store-path ./data follow
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath string
		rt      *runtimeEnv
	)

	root := &cobra.Command{
		Use:           "workclock",
		Short:         "Track time spent on work orders",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}

			// Load config file first (default $HOME/.workclock/config.toml), then env, then flags
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment (WORKCLOCK_*) overrides the file, flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.NewConsoleLogger(os.Stderr, cfg.LogLevel)
			logger.Debug("configuration",
				log.String("store", cfg.StoreDriver),
				log.String("store_path", cfg.StorePath),
				log.String("roster", cfg.RosterPath),
				log.String("principal", cfg.Principal),
				log.Int("retry_attempts", cfg.RetryAttempts),
			)

			var err error
			rt, err = newRuntime(cmd.Context(), cfg, logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt == nil {
				return nil
			}
			return rt.Close()
		},
	}

	// Flags
	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.workclock/config.toml)")
	pf.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "document store: sqlite, fs, postgres or memory")
	pf.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "database file (sqlite) or directory (fs)")
	pf.StringVar(&cfg.StoreDSN, "store-dsn", cfg.StoreDSN, "postgres connection string")
	pf.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "principal roster file (default: $HOME/.workclock/roster.toml)")
	pf.StringVar(&cfg.Principal, "as", cfg.Principal, "principal id to act as")
	pf.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "store attempts per operation")
	pf.DurationVar(&cfg.RetryInitial, "retry-initial", cfg.RetryInitial, "wait before the first retry")
	pf.DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "maximum wait between retries")
	pf.DurationVar(&cfg.WatchDebounce, "watch-debounce", cfg.WatchDebounce, "quiet period before reporting file changes")
	pf.StringVar(&cfg.MetricsTextfile, "metrics-textfile", cfg.MetricsTextfile, "write Prometheus metrics to this file on exit")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	env := func() *runtimeEnv { return rt }
	root.AddCommand(
		newSaveCmd(env),
		newActionCmd(env, "start", "Start the timer of a work order", actionStart),
		newActionCmd(env, "pause", "Pause a running timer", actionPause),
		newActionCmd(env, "resume", "Resume a paused timer", actionResume),
		newActionCmd(env, "stop", "Stop the timer and complete the work order", actionStop),
		newActionCmd(env, "submit", "Submit a completed work order", actionSubmit),
		newShowCmd(env),
		newStatsCmd(env),
		newFollowCmd(env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "workclock:", err)
		os.Exit(1)
	}
}
