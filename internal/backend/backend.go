// Package backend holds the database engines a schema can be migrated on.
// Engine packages register themselves from init; import them for effect.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Limetric/simschema/internal/migration"
)

// Backend opens connections to one database engine and renders its SQL.
type Backend interface {
	Name() string
	DefaultPort() int
	Dialect() migration.Dialect
	// DSN builds a connection string from discrete connection settings.
	DSN(c Conn) (string, error)
	Open(ctx context.Context, dsn string, maxPoolSize int) (*sql.DB, error)
}

// Conn holds discrete connection settings.
type Conn struct {
	Server      string
	Port        int
	Database    string
	Username    string
	Password    string
	MaxPoolSize int
}

// Validate checks the settings every server engine needs.
func (c Conn) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("parameter 'server' missing")
	}
	if c.Database == "" {
		return fmt.Errorf("parameter 'database' missing")
	}
	return nil
}

// Registry holds registered backends by name.
var Registry = map[string]Backend{}

// Register adds a backend to the global registry.
func Register(b Backend) {
	Registry[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	b, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (registered: %s)", name, strings.Join(Names(), ", "))
	}
	return b, nil
}

// Names returns the registered backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
