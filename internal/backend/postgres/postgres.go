// Package postgres migrates schemas on PostgreSQL through pgx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
)

func init() {
	backend.Register(&postgresBackend{})
}

type postgresBackend struct{}

func (b *postgresBackend) Name() string               { return "postgres" }
func (b *postgresBackend) DefaultPort() int           { return 5432 }
func (b *postgresBackend) Dialect() migration.Dialect { return Dialect{} }

// DSN builds a postgres:// URL from discrete settings.
func (b *postgresBackend) DSN(c backend.Conn) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	port := c.Port
	if port == 0 {
		port = b.DefaultPort()
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Server, strconv.Itoa(port)),
		Path:   "/" + c.Database,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	dsn := u.String()
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("postgres dsn: %w", err)
	}
	return dsn, nil
}

func (b *postgresBackend) Open(ctx context.Context, dsn string, maxPoolSize int) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	if maxPoolSize > 0 {
		db.SetMaxOpenConns(maxPoolSize)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
