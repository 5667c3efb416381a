// Package sqlite migrates schemas on SQLite files through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
)

func init() {
	backend.Register(&sqliteBackend{})
}

type sqliteBackend struct{}

func (b *sqliteBackend) Name() string               { return "sqlite" }
func (b *sqliteBackend) DefaultPort() int           { return 0 }
func (b *sqliteBackend) Dialect() migration.Dialect { return Dialect{} }

func (b *sqliteBackend) DSN(backend.Conn) (string, error) {
	return "", fmt.Errorf("database.dsn is required for sqlite (a file path)")
}

func (b *sqliteBackend) Open(ctx context.Context, dsn string, _ int) (*sql.DB, error) {
	return Open(ctx, dsn)
}

// Open opens the database file at dsn with a single connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == ":memory:" || dsn == "file::memory:" || strings.Contains(dsn, "mode=memory") {
		return nil, fmt.Errorf("in-memory SQLite databases are not supported (each sql.Open gets a separate DB)")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
