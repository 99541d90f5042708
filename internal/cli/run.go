package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fastlog/internal/access"
	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/config"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/export"
	"github.com/roach88/fastlog/internal/store"
)

// App is everything a command needs: the loaded config, an open store and
// the engine over it.
type App struct {
	Config config.Config
	Store  *store.Store
	Engine *engine.Engine
	Logger *slog.Logger

	// User is the caller every engine operation runs as.
	User string
	// Zone is the explicit zone from --zone, or "" to let the engine resolve.
	Zone string

	out        *OutputFormatter
	engineOpts []engine.Option
}

// openApp loads configuration, opens the database (creating it if it doesn't
// exist) and builds the engine. When needUser is set a caller identity is
// required.
func openApp(cmd *cobra.Command, opts *RootOptions, needUser bool) (*App, error) {
	logger := opts.logger
	if logger == nil {
		logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
	}

	if needUser && opts.User == "" {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("no user: pass --user or set %s", config.EnvUser))
	}
	if opts.Zone != "" {
		if _, err := chrono.LoadZone(opts.Zone); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --zone", err)
		}
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	logger.Debug("config loaded", "database", cfg.Database, "default_zone", cfg.DefaultZone)

	if dir := filepath.Dir(cfg.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	clock := opts.clock
	if clock == nil {
		clock = chrono.System{}
	}

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database, store.WithPoolSize(cfg.PoolSize), store.WithClock(clock))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engineOpts := []engine.Option{
		engine.WithClock(clock),
		engine.WithDefaultZone(cfg.DefaultZone),
		engine.WithTxTimeout(cfg.TxTimeoutDuration()),
		engine.WithMaxRetries(cfg.MaxRetries),
		engine.WithRetryBackoff(cfg.RetryBackoffDuration()),
	}

	return &App{
		Config: cfg,
		Store:  st,
		Engine: engine.New(st, engineOpts...),
		Logger: logger,
		User:   opts.User,
		Zone:   opts.Zone,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		engineOpts: engineOpts,
	}, nil
}

// Close releases the database.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("error closing database", "error", err)
	}
}

// withApp opens the app, runs fn and closes the app again.
func withApp(cmd *cobra.Command, opts *RootOptions, needUser bool, fn func(ctx context.Context, a *App) error) error {
	a, err := openApp(cmd, opts, needUser)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

// local parses a wall-clock flag and returns it with the zone it is read in.
// An empty value means now, given in UTC: read back in the caller's zone it
// could land in the wrong copy of a repeated DST hour.
func (a *App) local(flag, value string) (chrono.Local, string, error) {
	if value == "" {
		l, err := chrono.ToLocal(a.Engine.Now(), "UTC")
		return l, "UTC", err
	}
	l, err := chrono.ParseLocal(value)
	if err != nil {
		return chrono.Local{}, "", WrapExitError(ExitCommandError, "invalid --"+flag, err)
	}
	return l, a.Zone, nil
}

// instant converts a wall-clock flag to a UTC instant in the caller's zone.
func (a *App) instant(ctx context.Context, flag, value string) (time.Time, error) {
	l, err := chrono.ParseLocal(value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "invalid --"+flag, err)
	}
	return a.Engine.Instant(ctx, a.User, l, a.Zone)
}

// exporter renders records in the caller's zone. Its reads go through a
// read-only engine.
func (a *App) exporter() *export.Exporter {
	return export.New(zonedSource{Engine: a.readOnlyEngine(), zone: a.Zone})
}

// readOnlyEngine shares the app's store and settings but only ever grants
// reads to the owner.
func (a *App) readOnlyEngine() *engine.Engine {
	opts := append(append([]engine.Option{}, a.engineOpts...),
		engine.WithGuard(access.ReadOnly(access.OwnerOnly{})))
	return engine.New(a.Store, opts...)
}

// zonedSource pins the export zone to --zone when one was given.
type zonedSource struct {
	*engine.Engine
	zone string
}

func (z zonedSource) Zone(ctx context.Context, owner string) (string, error) {
	if z.zone != "" {
		return z.zone, nil
	}
	return z.Engine.Zone(ctx, owner)
}
