package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/config"
	"github.com/Limetric/simschema/internal/hooks"
	"github.com/Limetric/simschema/internal/migration"
	"github.com/Limetric/simschema/internal/tables"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [stream...]",
	Short: "Bring every table to its latest revision",
	Long: `migrate creates missing tables from their latest shape and upgrades
existing tables one revision at a time. Without arguments it migrates the
streams listed in [migration] tables, or all of them.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().Uint("stop-at-revision", 0, "migrate each table at most up to this revision (overrides config)")
	migrateCmd.Flags().Bool("drop-tables-first", false, "drop every table before migrating it (overrides config)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("stop-at-revision") {
		cfg.Migration.StopAtRevision, _ = cmd.Flags().GetUint("stop-at-revision")
	}
	if cmd.Flags().Changed("drop-tables-first") {
		cfg.Migration.DropTablesFirst, _ = cmd.Flags().GetBool("drop-tables-first")
	}
	names := cfg.Migration.Tables
	if len(args) > 0 {
		names = args
	}
	streams, err := tables.Select(names)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	be, db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("connected", "backend", be.Name(), "streams", len(streams),
		"stop_at_revision", cfg.Migration.StopAtRevision, "drop_tables_first", cfg.Migration.DropTablesFirst)

	vars := map[string]string{"backend": be.Name()}
	if err := hooks.Run(ctx, db, logger, be.Name(), "before_migrate", cfg.HookFiles("before_migrate"), vars); err != nil {
		return fmt.Errorf("before_migrate hooks: %w", err)
	}

	m := migration.New(db, be.Dialect(),
		migration.WithLogger(logger),
		migration.WithStopAtRevision(cfg.Migration.StopAtRevision),
		migration.WithDropTablesFirst(cfg.Migration.DropTablesFirst),
	)
	for _, s := range streams {
		if err := m.MigrateTables(ctx, s.Elements); err != nil {
			return fmt.Errorf("migrate %s: %w", s.Name, err)
		}
	}

	if err := hooks.Run(ctx, db, logger, be.Name(), "after_migrate", cfg.HookFiles("after_migrate"), vars); err != nil {
		return fmt.Errorf("after_migrate hooks: %w", err)
	}

	logger.Info("migration completed", "max_revision", m.MaxAvailableRevision(),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// connect opens the configured database.
func connect(ctx context.Context, cfg *config.Config) (backend.Backend, *sql.DB, error) {
	be, err := backend.Lookup(cfg.Database.Backend)
	if err != nil {
		return nil, nil, err
	}
	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn, err = be.DSN(cfg.Conn())
		if err != nil {
			return nil, nil, err
		}
	}
	db, err := be.Open(ctx, dsn, cfg.Database.MaxPoolSize)
	if err != nil {
		return nil, nil, err
	}
	return be, db, nil
}
