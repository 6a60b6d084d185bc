package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"macesnap/internal/handlers"
	"macesnap/pkg/config"
	"macesnap/pkg/security"
	"macesnap/pkg/snapshot"
)

// Server represents the timestamp MCP server
type Server struct {
	mcpServer    *server.MCPServer
	toolHandlers *handlers.ToolHandlers
	scope        *security.Scope
	logger       *slog.Logger
	config       *config.Config
}

// New creates a new server instance with all necessary components. Extra
// snapshot options are applied after the scope, mainly for tests.
func New(cfg *config.Config, logger *slog.Logger, opts ...snapshot.Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(cfg.AllowedDirectories) == 0 {
		return nil, fmt.Errorf("at least one allowed directory must be specified")
	}

	logger.Info("Creating timestamp MCP server",
		"name", cfg.Server.Name,
		"version", cfg.Server.Version,
		"allowed_dirs_count", len(cfg.AllowedDirectories))

	scope, err := security.NewScope(cfg.AllowedDirectories, cfg.DenyPatterns, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build scope: %w", err)
	}

	snap := snapshot.New(logger, append([]snapshot.Option{snapshot.WithScope(scope)}, opts...)...)
	tf := snapshot.TimeFormat{Layout: cfg.Output.Layout(), Location: cfg.Output.Location()}

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(true),
	)

	toolHandlers := handlers.NewToolHandlers(scope, snap, tf, logger)
	if err := toolHandlers.RegisterTools(mcpServer); err != nil {
		logger.Error("Failed to register tools", "error", err)
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	srv := &Server{
		mcpServer:    mcpServer,
		toolHandlers: toolHandlers,
		scope:        scope,
		logger:       logger,
		config:       cfg,
	}

	logger.Info("Server created successfully",
		"tools_registered", true,
		"transport", cfg.Server.Transport)

	return srv, nil
}

// Start begins serving MCP requests via stdio
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}

	s.logger.Info("Starting MCP server",
		"allowed_directories", s.scope.AllowedDirectories())

	if err := server.ServeStdio(s.mcpServer); err != nil {
		s.logger.Error("Failed to serve stdio", "error", err)
		return fmt.Errorf("failed to serve stdio: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}

	s.logger.Info("Shutting down MCP server")

	// ServeStdio stops on its own when stdin closes or a signal arrives;
	// there is nothing to release here.

	s.logger.Info("MCP server shutdown complete")
	return nil
}

// AllowedDirectories returns the allowed directories for this server
func (s *Server) AllowedDirectories() []string {
	return s.scope.AllowedDirectories()
}
