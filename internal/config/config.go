// Package config loads the simschema TOML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/Limetric/simschema/internal/backend"
)

// Config holds the full TOML-driven configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Migration MigrationConfig `toml:"migration"`
	Hooks     HooksConfig     `toml:"hooks"`
	Log       LogConfig       `toml:"log"`

	// configDir is the directory containing the TOML file, used to resolve relative hook paths.
	configDir string
}

// DatabaseConfig selects the backend and how to reach it. DSN wins over the
// discrete settings when both are given.
type DatabaseConfig struct {
	Backend     string `toml:"backend"` // mssql|postgres|mysql|sqlite
	DSN         string `toml:"dsn"`
	Server      string `toml:"server"`
	Port        int    `toml:"port"`
	Database    string `toml:"database"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	MaxPoolSize int    `toml:"max_pool_size"`
}

type MigrationConfig struct {
	// Tables limits the run to these streams; empty means all.
	Tables          []string `toml:"tables"`
	StopAtRevision  uint     `toml:"stop_at_revision"`
	DropTablesFirst bool     `toml:"drop_tables_first"`
}

type HooksConfig struct {
	BeforeMigrate []string `toml:"before_migrate"`
	AfterMigrate  []string `toml:"after_migrate"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug|info|warn|error
	Format string `toml:"format"` // text|json
}

type envConfig struct {
	Backend  string `env:"SIMSCHEMA_BACKEND"`
	DSN      string `env:"SIMSCHEMA_DSN"`
	Password string `env:"SIMSCHEMA_PASSWORD"`
	LogLevel string `env:"SIMSCHEMA_LOG_LEVEL"`
}


// Load reads the TOML file at path, applies SIMSCHEMA_* environment
// overrides and validates the result. An empty path configures from the
// environment alone.
func Load(path string) (*Config, error) {
	cfg := Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if unknown := md.Undecoded(); len(unknown) > 0 {
			keys := make([]string, len(unknown))
			for i, k := range unknown {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		cfg.configDir = filepath.Dir(absPath)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.configDir = wd
	}

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if ec.Backend != "" {
		cfg.Database.Backend = ec.Backend
	}
	if ec.DSN != "" {
		cfg.Database.DSN = ec.DSN
	}
	if ec.Password != "" {
		cfg.Database.Password = ec.Password
	}
	if ec.LogLevel != "" {
		cfg.Log.Level = ec.LogLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Database.Backend = strings.ToLower(strings.TrimSpace(c.Database.Backend))
	registered := strings.Join(backend.Names(), ", ")
	if c.Database.Backend == "" {
		return fmt.Errorf("database.backend is required (must be one of: %s)", registered)
	}
	be, err := backend.Lookup(c.Database.Backend)
	if err != nil {
		return fmt.Errorf("database.backend must be one of: %s", registered)
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 0 and 65535")
	}
	if c.Database.MaxPoolSize < 0 {
		return fmt.Errorf("database.max_pool_size must not be negative")
	}
	if c.Database.DSN == "" {
		if _, err := be.DSN(c.Conn()); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}

// Conn returns the discrete connection settings.
func (c *Config) Conn() backend.Conn {
	return backend.Conn{
		Server:      c.Database.Server,
		Port:        c.Database.Port,
		Database:    c.Database.Database,
		Username:    c.Database.Username,
		Password:    c.Database.Password,
		MaxPoolSize: c.Database.MaxPoolSize,
	}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HookFiles returns the hook files of phase resolved against the config
// directory.
func (c *Config) HookFiles(phase string) []string {
	var files []string
	switch phase {
	case "before_migrate":
		files = c.Hooks.BeforeMigrate
	case "after_migrate":
		files = c.Hooks.AfterMigrate
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = c.resolvePath(f)
	}
	return out
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}
