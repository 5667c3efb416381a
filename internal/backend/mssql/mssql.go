// Package mssql migrates schemas on Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
)

func init() {
	backend.Register(&mssqlBackend{})
}

type mssqlBackend struct{}

func (b *mssqlBackend) Name() string               { return "mssql" }
func (b *mssqlBackend) DefaultPort() int           { return 1433 }
func (b *mssqlBackend) Dialect() migration.Dialect { return Dialect{} }

// DSN builds a sqlserver:// URL from discrete settings.
func (b *mssqlBackend) DSN(c backend.Conn) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	port := c.Port
	if port == 0 {
		port = b.DefaultPort()
	}
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   net.JoinHostPort(c.Server, strconv.Itoa(port)),
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	q := url.Values{}
	q.Set("database", c.Database)
	u.RawQuery = q.Encode()
	dsn := u.String()
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", fmt.Errorf("mssql dsn: %w", err)
	}
	return dsn, nil
}

func (b *mssqlBackend) Open(ctx context.Context, dsn string, maxPoolSize int) (*sql.DB, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mssql: %w", err)
	}
	if maxPoolSize > 0 {
		db.SetMaxOpenConns(maxPoolSize)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mssql: %w", err)
	}
	return db, nil
}
