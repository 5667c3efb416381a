// Package mysql migrates schemas on MySQL 8.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
)

func init() {
	backend.Register(&mysqlBackend{})
}

type mysqlBackend struct{}

func (b *mysqlBackend) Name() string               { return "mysql" }
func (b *mysqlBackend) DefaultPort() int           { return 3306 }
func (b *mysqlBackend) Dialect() migration.Dialect { return Dialect{} }

// DSN builds a go-sql-driver DSN from discrete settings.
func (b *mysqlBackend) DSN(c backend.Conn) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	port := c.Port
	if port == 0 {
		port = b.DefaultPort()
	}
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Server, strconv.Itoa(port))
	cfg.DBName = c.Database
	return withSessionOptions(cfg.FormatDSN())
}

// withSessionOptions applies the options every connection needs.
func withSessionOptions(baseDSN string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (b *mysqlBackend) Open(ctx context.Context, dsn string, maxPoolSize int) (*sql.DB, error) {
	dsn, err := withSessionOptions(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if maxPoolSize > 0 {
		db.SetMaxOpenConns(maxPoolSize)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
