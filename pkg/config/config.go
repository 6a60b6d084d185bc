package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"macesnap/pkg/security"
)

// Config holds the application configuration
type Config struct {
	// LogLevel specifies the logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// AllowedDirectories limits which paths may be queried. Empty means
	// unrestricted for the CLI; the MCP server requires at least one.
	AllowedDirectories []string `yaml:"allowed_directories"`

	// DenyPatterns are doublestar globs of paths that are never queried
	DenyPatterns []string `yaml:"deny_patterns"`

	// Output controls how records are rendered
	Output OutputConfig `yaml:"output"`

	// Server configuration
	Server ServerConfig `yaml:"server"`
}

// OutputConfig holds rendering options
type OutputConfig struct {
	// Format is text, json or yaml
	Format string `yaml:"format"`

	// TimeLayout is a Go time layout or one of the names in timeLayouts
	TimeLayout string `yaml:"time_layout"`

	// UTC renders times in UTC instead of the local zone
	UTC bool `yaml:"utc"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	// Name of the MCP server
	Name string `yaml:"name"`

	// Version of the MCP server
	Version string `yaml:"version"`

	// Transport specifies the transport method (only stdio is served)
	Transport string `yaml:"transport"`
}

var timeLayouts = map[string]string{
	"RFC3339":     time.RFC3339,
	"RFC3339Nano": time.RFC3339Nano,
	"RFC1123":     time.RFC1123,
	"DateTime":    time.DateTime,
	"StampNano":   time.StampNano,
}

// Load reads and validates configuration from the specified file path
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("configuration file path is required")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := normalizeDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to process allowed directories: %w", err)
	}

	return &cfg, nil
}

// Validate fills defaults and rejects invalid values
func Validate(cfg *Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !validLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	switch cfg.Output.Format {
	case "":
		cfg.Output.Format = "text"
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid output format: %s", cfg.Output.Format)
	}

	if cfg.Output.TimeLayout == "" {
		cfg.Output.TimeLayout = "RFC3339Nano"
	}

	if cfg.Server.Name == "" {
		cfg.Server.Name = "macesnap"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
	}

	return nil
}

// normalizeDirectories makes allowed directories absolute and checks they exist
func normalizeDirectories(cfg *Config) error {
	if err := security.ValidateDirectories(cfg.AllowedDirectories); err != nil {
		return err
	}

	normalizedDirs := make([]string, 0, len(cfg.AllowedDirectories))
	for _, dir := range cfg.AllowedDirectories {
		absDir, err := filepath.Abs(security.ExpandHomePath(dir))
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
		}
		normalizedDirs = append(normalizedDirs, filepath.Clean(absDir))
	}

	cfg.AllowedDirectories = normalizedDirs
	return nil
}

// Layout resolves the configured time layout name to a Go layout string
func (o OutputConfig) Layout() string {
	if l, ok := timeLayouts[o.TimeLayout]; ok {
		return l
	}
	return o.TimeLayout
}

// Location returns the zone times are rendered in
func (o OutputConfig) Location() *time.Location {
	if o.UTC {
		return time.UTC
	}
	return time.Local
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Output: OutputConfig{
			Format:     "text",
			TimeLayout: "RFC3339Nano",
		},
		Server: ServerConfig{
			Name:      "macesnap",
			Version:   "1.0.0",
			Transport: "stdio",
		},
	}
}
