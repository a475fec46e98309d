package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/reading"
	"github.com/papercomputeco/tarot/pkg/tarot"
	"github.com/papercomputeco/tarot/pkg/worker"
)

// Generator produces readings. *reading.Service implements it.
type Generator interface {
	Generate(ctx context.Context, req reading.Request, onProgress func(string)) (reading.Result, error)
}

// Deps are the components the server is built from.
type Deps struct {
	Readings Generator
	History  *history.Store

	// Pool, when set, persists and publishes completed readings.
	Pool *worker.Pool

	// Deck draws cards; defaults to the shared random deck.
	Deck *tarot.Deck

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server is the API server for the tarot system.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App

	mu    sync.RWMutex
	deps  Deps
	model string
}

// NewServer creates a new API server.
func NewServer(config Config, deps Deps, l *slog.Logger) (*Server, error) {
	if deps.Readings == nil {
		return nil, errors.New("reading generator is required")
	}
	if deps.History == nil {
		return nil, errors.New("history store is required")
	}
	if deps.Deck == nil {
		deps.Deck = tarot.NewDeck()
	}
	if l == nil {
		l = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		deps:   deps,
		model:  config.Model,
		logger: l,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/cards", s.handleListCards)
	v1.Get("/cards/:id", s.handleGetCard)
	v1.Post("/draw", s.handleDraw)
	v1.Post("/readings", s.handleReading)

	v1.Get("/history", s.handleListHistory)
	v1.Get("/history/today", s.handleToday)
	v1.Delete("/history", s.handleClearHistory)

	v1.Get("/saved", s.handleListSaved)
	v1.Post("/saved", s.handleSave)
	v1.Delete("/saved", s.handleClearSaved)
	v1.Get("/saved/:id", s.handleGetSaved)
	v1.Get("/saved/:id/export", s.handleExportSaved)
	v1.Delete("/saved/:id", s.handleDeleteSaved)

	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	return s, nil
}

// SetReadings swaps the reading generator and the model it reports, e.g.
// after a config reload. Readings already streaming keep the generator they
// started with.
func (s *Server) SetReadings(g Generator, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps.Readings = g
	s.model = model
}

func (s *Server) readings() (Generator, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deps.Readings, s.model
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
