// Package config loads manifest settings from $MANIFEST_HOME/config.yaml.
//
// A missing file means defaults. Environment variables override the file:
// MANIFEST_HOME picks the home directory, MANIFEST_DB the database path and
// MANIFEST_LOG_LEVEL the log level.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDBFile        = "manifest.db"
	DefaultBusyTimeoutMS = 5000
	DefaultMaxRetries    = 3
	DefaultLogLevel      = "info"
)

// Config holds the runtime settings.
type Config struct {
	// HomeDir is where config.yaml lives. Not read from the file.
	HomeDir string `yaml:"-"`

	DataDir       string `yaml:"data_dir"`
	DBFile        string `yaml:"db_file"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	MaxRetries    int    `yaml:"max_retries"`
	LogLevel      string `yaml:"log_level"`

	// dbOverride is MANIFEST_DB: a full database path that wins over
	// DataDir/DBFile.
	dbOverride string
}

// Default returns the configuration used when no file exists.
func Default(home string) Config {
	return Config{
		HomeDir:       home,
		DataDir:       home,
		DBFile:        DefaultDBFile,
		BusyTimeoutMS: DefaultBusyTimeoutMS,
		MaxRetries:    DefaultMaxRetries,
		LogLevel:      DefaultLogLevel,
	}
}

// HomeDir returns MANIFEST_HOME, or ~/.manifest.
func HomeDir() string {
	if override := os.Getenv("MANIFEST_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".manifest")
}

// Path returns the config file path within home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load reads the configuration from HomeDir().
func Load() (Config, error) {
	return LoadFrom(HomeDir())
}

// LoadFrom reads home/config.yaml, applies environment overrides and
// validates the result.
func LoadFrom(home string) (Config, error) {
	cfg := Default(home)

	data, err := os.ReadFile(Path(home))
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config.yaml: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("MANIFEST_DB"); raw != "" {
		cfg.dbOverride = raw
	}
	if raw := os.Getenv("MANIFEST_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
}

func normalize(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = cfg.HomeDir
	}
	if strings.HasPrefix(cfg.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
		}
	}
	if cfg.DBFile == "" {
		cfg.DBFile = DefaultDBFile
	}
	if cfg.BusyTimeoutMS == 0 {
		cfg.BusyTimeoutMS = DefaultBusyTimeoutMS
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.BusyTimeoutMS < 0 {
		return fmt.Errorf("busy_timeout_ms must be >= 0, got %d", c.BusyTimeoutMS)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DBPath returns the SQLite database path.
func (c Config) DBPath() string {
	if c.dbOverride != "" {
		return c.dbOverride
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// BusyTimeout returns the driver lock wait.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log_level %q: must be one of: debug, info, warn, error", s)
}
