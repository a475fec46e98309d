// Package setup builds the components shared by the tarot commands from the
// resolved configuration.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/cmd/tarot/sqlitepath"
	"github.com/papercomputeco/tarot/pkg/config"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/llm"
	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/reading"
	"github.com/papercomputeco/tarot/pkg/storage"
	"github.com/papercomputeco/tarot/pkg/storage/inmemory"
	"github.com/papercomputeco/tarot/pkg/storage/postgres"
	"github.com/papercomputeco/tarot/pkg/storage/sqlite"
	"github.com/papercomputeco/tarot/pkg/stream"
	"github.com/papercomputeco/tarot/pkg/transport"
)

// Storage driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrNoPostgresDSN is returned when the postgres driver is selected without a
// connection string.
var ErrNoPostgresDSN = errors.New("postgres storage needs storage.postgres_dsn")

// Flags returns the persistent --config-dir and --debug values of cmd.
func Flags(cmd *cobra.Command) (configDir string, debug bool) {
	configDir, _ = cmd.Flags().GetString("config-dir")
	debug, _ = cmd.Flags().GetBool("debug")
	return configDir, debug
}

// Load resolves the configuration for cmd, binding the registered flags named
// by flagKeys (and the global --transport flag) into the viper precedence
// chain.
func Load(cmd *cobra.Command, flagKeys ...string) (*config.Config, error) {
	configDir, _ := Flags(cmd)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	keys := append([]string{config.FlagTransport}, flagKeys...)
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)

	return config.FromViper(v), nil
}

// Logger returns the CLI logger. Logs go to stderr so stdout carries only the
// command output.
func Logger(debug bool) *slog.Logger {
	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
}

// Storage opens the configured key-value storage driver.
func Storage(ctx context.Context, cfg *config.Config, configDir string, l *slog.Logger) (storage.Driver, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case DriverMemory, "inmemory":
		l.Debug("using in-memory storage")
		return inmemory.NewDriver(), nil

	case DriverPostgres:
		if cfg.Storage.PostgresDSN == "" {
			return nil, ErrNoPostgresDSN
		}
		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		l.Debug("using PostgreSQL storage")
		return driver, nil

	case "", DriverSQLite:
		path, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		l.Debug("using SQLite storage", "path", path)
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q (available: %s, %s, %s)",
			cfg.Storage.Driver, DriverSQLite, DriverPostgres, DriverMemory)
	}
}

// History opens the storage driver and wraps it in a history store. The
// returned close function releases the driver.
func History(ctx context.Context, cfg *config.Config, configDir string, l *slog.Logger) (*history.Store, func() error, error) {
	driver, err := Storage(ctx, cfg, configDir, l)
	if err != nil {
		return nil, nil, err
	}
	return history.New(driver), driver.Close, nil
}

// Transport selects the configured streaming backend.
func Transport(cfg *config.Config) (transport.Transport, error) {
	timeout, err := cfg.Transport.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	var opts []transport.Option
	if timeout > 0 {
		opts = append(opts, transport.WithTimeout(timeout))
	}
	return transport.Select(cfg.Transport.Backend, opts...)
}

// Client builds the LLM client. When tap is set, raw stream bytes are copied
// to it.
func Client(cfg *config.Config, l *slog.Logger, tap io.Writer) (*llm.Client, error) {
	t, err := Transport(cfg)
	if err != nil {
		return nil, err
	}

	opts := []llm.Option{
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTransport(t),
		llm.WithLogger(l),
	}
	if tap != nil {
		opts = append(opts, llm.WithStreamOptions(stream.WithTap(tap)))
	}

	return llm.New(opts...), nil
}

// ServiceOpts configures Service.
type ServiceOpts struct {
	// Offline skips the LLM entirely.
	Offline bool

	// Tap receives the raw LLM stream.
	Tap io.Writer

	Notifier reading.Notifier
	Logger   *slog.Logger
}

// Service builds the reading service from cfg.
func Service(cfg *config.Config, opts ServiceOpts) (*reading.Service, error) {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}

	svcOpts := []reading.Option{
		reading.WithLogger(l),
		reading.WithThrottle(cfg.Reading.Throttle()),
		reading.WithOffline(reading.NewOffline(reading.WithStep(cfg.Reading.OfflineStep()))),
	}
	if opts.Notifier != nil {
		svcOpts = append(svcOpts, reading.WithNotifier(opts.Notifier))
	}

	if !opts.Offline {
		client, err := Client(cfg, l, opts.Tap)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, reading.WithClient(client))
	}

	return reading.NewService(svcOpts...), nil
}
