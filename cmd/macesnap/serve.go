package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"macesnap/internal/server"
	"macesnap/pkg/config"
	"macesnap/pkg/security"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [DIR...]",
		Short: "Serve timestamp tools over MCP stdio, limited to the given directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			// Directories on the command line replace the configured ones
			if len(args) > 0 {
				cfg.AllowedDirectories = args
				if err := validateCommandLineDirectories(cfg); err != nil {
					return fmt.Errorf("invalid directory arguments: %w", err)
				}
			}
			if len(cfg.AllowedDirectories) == 0 {
				return fmt.Errorf("at least one allowed directory is required, via arguments or --config")
			}

			logger := initializeLogger(cfg.LogLevel, cmd.ErrOrStderr())
			logger.Info("Starting timestamp MCP server",
				"version", cfg.Server.Version,
				"config_source", getConfigSource(opts.configPath, args),
				"allowed_directories", cfg.AllowedDirectories)

			srv, err := server.New(cfg, logger)
			if err != nil {
				logger.Error("Failed to create server", "error", err)
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			errChan := make(chan error, 1)
			go func() {
				errChan <- srv.Start(ctx)
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "Timestamp MCP server running on stdio\n")
			fmt.Fprintf(cmd.ErrOrStderr(), "Allowed directories: %v\n", cfg.AllowedDirectories)

			select {
			case sig := <-sigChan:
				logger.Info("Received shutdown signal", "signal", sig)
				cancel()
			case err := <-errChan:
				if err != nil {
					logger.Error("Server error", "error", err)
					cancel()
				}
			}

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown error", "error", err)
				return err
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

// validateCommandLineDirectories validates directories provided via command line
func validateCommandLineDirectories(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is required")
	}
	if len(cfg.AllowedDirectories) == 0 {
		return fmt.Errorf("at least one directory must be specified")
	}

	for i, dir := range cfg.AllowedDirectories {
		dir = security.ExpandHomePath(dir)

		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
		}

		cfg.AllowedDirectories[i] = absDir

		info, err := os.Stat(absDir)
		if err != nil {
			return fmt.Errorf("directory %s is not accessible: %w", absDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path %s is not a directory", absDir)
		}
	}

	return nil
}

// getConfigSource returns a string indicating how configuration was loaded
func getConfigSource(configPath string, args []string) string {
	if len(args) > 0 {
		return "command_line"
	}
	if configPath != "" {
		return "config_file"
	}
	return "default"
}
