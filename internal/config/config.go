// Package config provides configuration management for the Cutdeck Agent.
// Configuration is loaded from environment variables with sensible defaults;
// project settings (resolution, frame rate) live in a YAML file in the data
// directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// Default values
	DefaultPort     = 8699
	DefaultLogLevel = "info"
	DefaultDataDir  = ".cutdeck"

	// Environment variable names
	EnvPort     = "CUTDECK_PORT"
	EnvLogLevel = "CUTDECK_LOG_LEVEL"
	EnvDataDir  = "CUTDECK_DATA_DIR"
	EnvFFmpeg   = "CUTDECK_FFMPEG"
	EnvHeadless = "CUTDECK_HEADLESS"

	// Database filename
	DBFilename = "cutdeck.db"

	// Project settings filename
	SettingsFilename = "project.yaml"

	// Upload limits
	DefaultUploadMaxBytes = 500 * 1024 * 1024 // 500MB
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ExportDir() string
	SettingsPath() string
	UploadMaxBytes() int64
	FFmpegPath() string
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	uploadMaxBytes int64
	ffmpegPath     string
	headless       bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		uploadMaxBytes: DefaultUploadMaxBytes,
		ffmpegPath:     "ffmpeg",
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if ff := os.Getenv(EnvFFmpeg); ff != "" {
		cfg.ffmpegPath = ff
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the directory holding uploaded and fetched media files
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// ExportDir returns the directory exports are written to
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// SettingsPath returns the full path to the project settings YAML file
func (c *EnvConfig) SettingsPath() string {
	return filepath.Join(c.dataDir, SettingsFilename)
}

// UploadMaxBytes returns the maximum accepted upload size in bytes
func (c *EnvConfig) UploadMaxBytes() int64 {
	return c.uploadMaxBytes
}

// FFmpegPath returns the ffmpeg binary path or name
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
