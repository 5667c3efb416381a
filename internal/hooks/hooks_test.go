package hooks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Limetric/simschema/internal/backend/sqlite"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		sql     string
		want    []string
	}{
		{
			"single statement",
			"sqlite",
			"SELECT 1",
			[]string{"SELECT 1"},
		},
		{
			"trailing without semicolon",
			"sqlite",
			"SELECT 1; SELECT 2",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"empty statements skipped",
			"postgres",
			"SELECT 1;; ;SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"escaped quotes",
			"mssql",
			"INSERT INTO t VALUES ('it''s;here'); SELECT 2",
			[]string{"INSERT INTO t VALUES ('it''s;here')", "SELECT 2"},
		},
		{
			"empty input",
			"mysql",
			"",
			nil,
		},
		{
			"comments preserved in statements",
			"sqlite",
			"-- seed; data\nDELETE FROM t; SELECT 1",
			[]string{"-- seed; data\nDELETE FROM t", "SELECT 1"},
		},
		{
			"double-quoted identifier",
			"postgres",
			`SELECT "a;b" FROM t; SELECT 2;`,
			[]string{`SELECT "a;b" FROM t`, "SELECT 2"},
		},
		{
			"postgres tagged dollar body",
			"postgres",
			"DO $fn$ BEGIN RAISE NOTICE 'x;y'; END; $fn$; SELECT 2;",
			[]string{"DO $fn$ BEGIN RAISE NOTICE 'x;y'; END; $fn$", "SELECT 2"},
		},
		{
			"postgres positional parameter is not a tag",
			"postgres",
			"PREPARE p AS SELECT $1; SELECT 2",
			[]string{"PREPARE p AS SELECT $1", "SELECT 2"},
		},
		{
			"postgres nested block comment",
			"postgres",
			"/* outer; /* inner; */ done; */ SELECT 1; SELECT 2;",
			[]string{"/* outer; /* inner; */ done; */ SELECT 1", "SELECT 2"},
		},
		{
			"postgres backslash is literal",
			"postgres",
			`SELECT 'a\'; SELECT 2`,
			[]string{`SELECT 'a\'`, "SELECT 2"},
		},
		{
			"sqlite block comments do not nest",
			"sqlite",
			"/* a /* b */ SELECT 1; SELECT 2",
			[]string{"/* a /* b */ SELECT 1", "SELECT 2"},
		},
		{
			"mysql backtick identifier",
			"mysql",
			"SELECT `a;b` FROM t; SELECT 2;",
			[]string{"SELECT `a;b` FROM t", "SELECT 2"},
		},
		{
			"mysql backslash escape",
			"mysql",
			`INSERT INTO t VALUES ('a\';b'); SELECT 2`,
			[]string{`INSERT INTO t VALUES ('a\';b')`, "SELECT 2"},
		},
		{
			"mysql hash comment",
			"mysql",
			"# note; here\nSELECT 1; SELECT 2",
			[]string{"# note; here\nSELECT 1", "SELECT 2"},
		},
		{
			"mssql bracket identifier",
			"mssql",
			"CREATE TABLE [a;b] (x int); SELECT 1",
			[]string{"CREATE TABLE [a;b] (x int)", "SELECT 1"},
		},
		{
			"mssql escaped bracket",
			"mssql",
			"SELECT [a]];b] FROM t; SELECT 2",
			[]string{"SELECT [a]];b] FROM t", "SELECT 2"},
		},
		{
			"mssql batch separator",
			"mssql",
			"CREATE PROCEDURE p AS SELECT 1\ngo\nSELECT 2\n  GO  \nSELECT 3",
			[]string{"CREATE PROCEDURE p AS SELECT 1", "SELECT 2", "SELECT 3"},
		},
		{
			"mssql go inside a line",
			"mssql",
			"SELECT 'GO'\nGOTO done\nSELECT 1 AS go",
			[]string{"SELECT 'GO'\nGOTO done\nSELECT 1 AS go"},
		},
		{
			"brackets are plain text on postgres",
			"postgres",
			"SELECT a[1]; SELECT 2",
			[]string{"SELECT a[1]", "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.backend, tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%s, %q) =\n  %q\nwant:\n  %q", tt.backend, tt.sql, got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := sqlite.Open(ctx, filepath.Join(dir, "hooks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	hook := filepath.Join(dir, "seed.sql")
	content := "CREATE TABLE {{prefix}}notes (body TEXT);\nINSERT INTO {{prefix}}notes VALUES ('a;b');\n"
	if err := os.WriteFile(hook, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Run(ctx, db, logger, "sqlite", "before_migrate", []string{hook}, map[string]string{"prefix": "x_"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var body string
	if err := db.QueryRowContext(ctx, "SELECT body FROM x_notes").Scan(&body); err != nil {
		t.Fatal(err)
	}
	if body != "a;b" {
		t.Errorf("body = %q, want %q", body, "a;b")
	}
}

func TestRunReportsFailingStatement(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := sqlite.Open(ctx, filepath.Join(dir, "hooks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	hook := filepath.Join(dir, "broken.sql")
	if err := os.WriteFile(hook, []byte("SELECT 1; SELEC 2;"), 0644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err = Run(ctx, db, logger, "sqlite", "after_migrate", []string{hook}, nil)
	if err == nil {
		t.Fatal("Run() should fail on invalid SQL")
	}
	if !strings.Contains(err.Error(), "statement 2") || !strings.Contains(err.Error(), "SQL: SELEC 2") {
		t.Errorf("error = %q, want statement index and SQL text", err)
	}
}

func TestRunMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := Run(context.Background(), nil, logger, "sqlite", "before_migrate", []string{filepath.Join(t.TempDir(), "nope.sql")}, nil)
	if err == nil || !strings.Contains(err.Error(), "read") {
		t.Errorf("Run() error = %v, want read error", err)
	}
}
