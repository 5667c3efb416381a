// Package hooks runs user SQL files around a migration run.
package hooks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Execer runs statements. *sql.DB and *sql.Tx implement it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Run reads each SQL file, expands {{key}} placeholders from vars and
// executes every statement in order, split by the rules of backend.
// files must already be resolved.
func Run(ctx context.Context, ex Execer, logger *slog.Logger, backend, phase string, files []string, vars map[string]string) error {
	if len(files) == 0 {
		return nil
	}
	logger.Info("running hooks", "phase", phase, "backend", backend, "files", len(files))

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("hook %s: read %s: %w", phase, f, err)
		}

		stmts := splitStatements(backend, expand(string(data), vars))
		logger.Debug("hook file", "phase", phase, "file", f, "statements", len(stmts))
		for i, stmt := range stmts {
			if _, err := ex.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("hook %s: %s: statement %d: %w\nSQL: %s", phase, f, i+1, err, stmt)
			}
		}
	}
	return nil
}

func expand(sql string, vars map[string]string) string {
	for k, v := range vars {
		sql = strings.ReplaceAll(sql, "{{"+k+"}}", v)
	}
	return sql
}
