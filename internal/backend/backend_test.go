package backend

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/Limetric/simschema/internal/migration"
)

type fakeBackend struct{ name string }

func (f fakeBackend) Name() string { return f.name }

func (fakeBackend) DefaultPort() int { return 1 }

func (fakeBackend) Dialect() migration.Dialect { return nil }

func (fakeBackend) DSN(Conn) (string, error) { return "", nil }

func (fakeBackend) Open(context.Context, string, int) (*sql.DB, error) { return nil, nil }

func withRegistry(t *testing.T, names ...string) {
	t.Helper()
	saved := Registry
	Registry = map[string]Backend{}
	t.Cleanup(func() { Registry = saved })
	for _, n := range names {
		Register(fakeBackend{name: n})
	}
}

func TestLookup(t *testing.T) {
	withRegistry(t, "postgres", "mssql")

	b, err := Lookup("mssql")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if b.Name() != "mssql" {
		t.Errorf("Name() = %q, want %q", b.Name(), "mssql")
	}

	_, err = Lookup("oracle")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "registered: mssql, postgres") {
		t.Errorf("error = %q, want registered names listed", err)
	}
}

func TestNames(t *testing.T) {
	withRegistry(t, "sqlite", "mysql", "mssql")
	got := strings.Join(Names(), ",")
	if got != "mssql,mysql,sqlite" {
		t.Errorf("Names() = %q, want %q", got, "mssql,mysql,sqlite")
	}
}

func TestConnValidate(t *testing.T) {
	tests := []struct {
		name    string
		conn    Conn
		wantErr string
	}{
		{"complete", Conn{Server: "db", Database: "sim"}, ""},
		{"no server", Conn{Database: "sim"}, "'server'"},
		{"no database", Conn{Server: "db"}, "'database'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conn.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
