package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"macesnap/pkg/config"
	"macesnap/pkg/security"
	"macesnap/pkg/snapshot"
)

const (
	// exitCodeSuccess indicates successful termination
	exitCodeSuccess = 0

	// exitCodeError indicates error termination
	exitCodeError = 1
)

// options holds the global flags shared by all commands
type options struct {
	configPath string
	logLevel   string
}

// main reads NTFS MACE timestamps of files and directories
func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(exitCodeError)
	}
	os.Exit(exitCodeSuccess)
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "macesnap",
		Short:         "Read NTFS MACE timestamps without disturbing them",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file (optional)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newQueryCommand(opts),
		newSnapshotCommand(opts),
		newDiffCommand(opts),
		newWatchCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// loadConfig reads the config file if one was given and applies flag overrides
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newSnapshotter wires the scope from cfg into a snapshotter. Without allowed
// directories or deny patterns paths are queried verbatim.
func newSnapshotter(cfg *config.Config, logger *slog.Logger) (*snapshot.Snapshotter, error) {
	if len(cfg.AllowedDirectories) == 0 && len(cfg.DenyPatterns) == 0 {
		return snapshot.New(logger), nil
	}
	scope, err := security.NewScope(cfg.AllowedDirectories, cfg.DenyPatterns, logger)
	if err != nil {
		return nil, err
	}
	return snapshot.New(logger, snapshot.WithScope(scope)), nil
}

func timeFormat(cfg *config.Config, utc bool) snapshot.TimeFormat {
	loc := cfg.Output.Location()
	if utc {
		loc = time.UTC
	}
	return snapshot.TimeFormat{Layout: cfg.Output.Layout(), Location: loc}
}

// initializeLogger creates a structured logger with the specified level
func initializeLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}
