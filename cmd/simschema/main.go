package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Limetric/simschema/internal/buildinfo"
	"github.com/Limetric/simschema/internal/config"

	// Register database backends
	_ "github.com/Limetric/simschema/internal/backend/mssql"
	_ "github.com/Limetric/simschema/internal/backend/mysql"
	_ "github.com/Limetric/simschema/internal/backend/postgres"
	_ "github.com/Limetric/simschema/internal/backend/sqlite"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "simschema",
	Short:         "Declarative schema migrations for simulator databases",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the simschema version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file (default: SIMSCHEMA_* environment only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.AddCommand(migrateCmd, planCmd, revisionCmd, tablesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		switch strings.ToLower(logLevel) {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = logLevel
		default:
			return nil, fmt.Errorf("--log-level must be one of: debug, info, warn, error")
		}
	}
	return cfg, nil
}

// newLogger builds the slog logger configured by [log].
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
