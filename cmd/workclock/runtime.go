package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/workclock/internal/adapters/fs"
	"github.com/bft-labs/workclock/internal/adapters/identity"
	"github.com/bft-labs/workclock/internal/adapters/memory"
	"github.com/bft-labs/workclock/internal/adapters/metrics"
	"github.com/bft-labs/workclock/internal/adapters/postgres"
	"github.com/bft-labs/workclock/internal/adapters/sqlite"
	"github.com/bft-labs/workclock/internal/app"
	"github.com/bft-labs/workclock/internal/cliconfig"
	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/lifecycle"
	"github.com/bft-labs/workclock/pkg/log"
)

// runtimeEnv is everything a subcommand needs, built once from Config.
type runtimeEnv struct {
	cfg     cliconfig.Config
	logger  log.Logger
	store   ports.DocumentStore
	roster  *identity.Roster
	metrics *metrics.Recorder
	service *app.Service
	closers []io.Closer
}

func newRuntime(ctx context.Context, cfg cliconfig.Config, logger log.Logger) (*runtimeEnv, error) {
	rt := &runtimeEnv{
		cfg:     cfg,
		logger:  log.OrNoop(logger),
		metrics: metrics.New(),
	}

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.store = store
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	ident, err := rt.identity()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	rt.service = app.NewService(store, ident,
		app.WithLogger(rt.logger),
		app.WithMetrics(rt.metrics),
		app.WithRetryPolicy(cfg.RetryPolicy()),
		app.WithEmitter(statusLogger{logger: rt.logger}),
	)
	return rt, nil
}

// identity prefers the roster file; without one the configured principal
// acts as a regular, non-admin user.
func (rt *runtimeEnv) identity() (ports.IdentityProvider, error) {
	if cliconfig.FileExists(rt.cfg.RosterPath) {
		roster, err := identity.LoadRoster(rt.cfg.RosterPath, rt.logger)
		if err != nil {
			return nil, err
		}
		rt.roster = roster
		return roster.As(rt.cfg.Principal), nil
	}
	return ports.StaticIdentity{ID: rt.cfg.Principal, Name: rt.cfg.Principal}, nil
}

// Close writes the metrics textfile, when configured, and releases the store.
func (rt *runtimeEnv) Close() error {
	var errs []error
	if rt.cfg.MetricsTextfile != "" {
		if err := rt.metrics.WriteTextfile(rt.cfg.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg cliconfig.Config) (ports.DocumentStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case cliconfig.DriverMemory:
		return memory.New(), nil, nil
	case cliconfig.DriverFS:
		return fs.NewStore(cfg.StorePath), nil, nil
	case cliconfig.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case cliconfig.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, domain.E(domain.ErrInvalidConfig, "open store", fmt.Sprintf("unknown store driver %q", cfg.StoreDriver))
	}
}

// statusLogger reports work-order status changes.
type statusLogger struct {
	logger log.Logger
}

func (s statusLogger) OnStateChange(previous, current lifecycle.Status, reason string) {
	s.logger.Info("work order status changed",
		log.String("from", previous.String()),
		log.String("to", current.String()),
		log.String("reason", reason),
	)
}
