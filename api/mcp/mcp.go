// Package mcp provides an MCP (Model Context Protocol) server exposing the
// tarot deck and the daily reading to MCP clients.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/tarot"
	"github.com/papercomputeco/tarot/pkg/utils"
)

type Config struct {
	// Deck draws the cards for draw_cards.
	Deck *tarot.Deck

	// History backs today_reading (optional, enables the tool).
	History *history.Store

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the draw_cards tool.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tarot",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Deck == nil {
		return nil, errors.New("deck is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        drawToolName,
		Description: drawDescription,
	}, s.handleDraw)

	if c.History != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        todayToolName,
			Description: todayDescription,
		}, s.handleToday)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
