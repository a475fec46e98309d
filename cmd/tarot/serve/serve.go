// Package servecmder provides the serve command, which runs the HTTP API and
// MCP server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/api"
	"github.com/papercomputeco/tarot/api/mcp"
	"github.com/papercomputeco/tarot/cmd/tarot/setup"
	"github.com/papercomputeco/tarot/pkg/config"
	"github.com/papercomputeco/tarot/pkg/dotdir"
	eventstreamutils "github.com/papercomputeco/tarot/pkg/eventstream/utils"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/tarot"
	"github.com/papercomputeco/tarot/pkg/worker"
)

type ServeCommander struct {
	debug     bool
	jsonLogs  bool
	logLevel  string
	logFile   string
	noMCP     bool
	noWatch   bool
	workers   uint
	configDir string

	// bound into the viper chain by setup.Load
	listen      string
	baseURL     string
	model       string
	maxTokens   uint
	throttleMs  uint
	storage     string
	sqlitePath  string
	postgresDSN string
	eventstream string
	topic       string

	logger *slog.Logger
}

const serveLongDesc string = `Run the tarot HTTP API and MCP server.

The API serves the card catalogue, draws, streamed readings (SSE), the daily
history and saved readings. The MCP server is mounted at /mcp and offers the
draw_cards and today_reading tools.

Completed readings are persisted and published to the event stream by a
background worker pool. Changes to config.toml reload the LLM and reading
settings without a restart.

Examples:
  tarot serve
  tarot serve --listen :9000 --storage postgres --postgres-dsn postgres://...
  tarot serve --eventstream kafka --eventstream-topic tarot.readings`

const serveShortDesc string = "Run the tarot API server"

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagThrottle,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagEventStream,
	config.FlagEventStreamTgt,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, cmder.debug = setup.Flags(cmd)
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonLogs, "log-json", false, "Write JSON logs")
	cmd.Flags().StringVar(&cmder.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides --debug)")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP server")
	cmd.Flags().BoolVar(&cmder.noWatch, "no-watch", false, "Do not reload config.toml on change")
	cmd.Flags().UintVar(&cmder.workers, "workers", 0, "Number of persistence workers (default 3)")

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddUintFlag(cmd, config.Flags, config.FlagThrottle, &cmder.throttleMs)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &cmder.eventstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTgt, &cmder.topic)

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	closeLog, err := c.setupLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := setup.Load(cmd, serveFlagKeys...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := setup.Storage(ctx, cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()
	store := history.New(driver)

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Backend: cfg.EventStream.Backend,
		Brokers: cfg.EventStream.Brokers,
		Topic:   cfg.EventStream.Topic,
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		History:    store,
		Publisher:  publisher,
		NumWorkers: c.workers,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	svc, err := setup.Service(cfg, setup.ServiceOpts{Logger: c.logger})
	if err != nil {
		return err
	}

	deck := tarot.NewDeck()
	deps := api.Deps{
		Readings: svc,
		History:  store,
		Pool:     pool,
		Deck:     deck,
	}

	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Deck:    deck,
			History: store,
			Logger:  c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		deps.MCP = mcpServer.Handler()
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Model:      cfg.LLM.Model,
	}, deps, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if !c.noWatch {
		dir, err := dotdir.NewManager().Target(c.configDir)
		if err != nil {
			return err
		}
		go func() {
			err := watchConfig(ctx, dir, c.logger, func() {
				c.reload(cmd, server)
			})
			if err != nil {
				c.logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	c.logger.Info("starting tarot server",
		"listen", cfg.API.Listen,
		"model", cfg.LLM.Model,
		"storage", cfg.Storage.Driver,
		"eventstream", cfg.EventStream.Backend,
		"mcp", !c.noMCP,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
		return server.Shutdown()
	}
}

// setupLogger builds the server logger. The returned func closes the log file.
func (c *ServeCommander) setupLogger(cmd *cobra.Command) (func(), error) {
	opts := []logger.Option{
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
		logger.WithWriter(cmd.ErrOrStderr()),
	}

	level := slog.LevelInfo
	if c.debug {
		level = slog.LevelDebug
	}
	if c.logLevel != "" {
		var err error
		level, err = logger.ParseLevel(c.logLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}
	c.logger = logger.New(opts...)

	if c.logFile == "" {
		return func() {}, nil
	}
	l, closer, err := logger.WithFile(c.logger, c.logFile, level)
	if err != nil {
		return nil, err
	}
	c.logger = l
	return func() { _ = closer.Close() }, nil
}

// reload rebuilds the reading service from the current config. Storage,
// listen address and event stream changes need a restart.
func (c *ServeCommander) reload(cmd *cobra.Command, server *api.Server) {
	cfg, err := setup.Load(cmd, serveFlagKeys...)
	if err != nil {
		c.logger.Error("reloading config", "error", err)
		return
	}

	svc, err := setup.Service(cfg, setup.ServiceOpts{Logger: c.logger})
	if err != nil {
		c.logger.Error("reloading reading service", "error", err)
		return
	}

	server.SetReadings(svc, cfg.LLM.Model)
	c.logger.Info("config reloaded",
		"model", cfg.LLM.Model,
		"base_url", cfg.LLM.BaseURL,
		"throttle_ms", cfg.Reading.ThrottleMs,
	)
}

