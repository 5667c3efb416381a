package sqlrow_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Limetric/simschema/internal/backend/mssql"
	"github.com/Limetric/simschema/internal/backend/mysql"
	"github.com/Limetric/simschema/internal/backend/postgres"
	"github.com/Limetric/simschema/internal/backend/sqlite"
	"github.com/Limetric/simschema/internal/migration"
	"github.com/Limetric/simschema/internal/simtypes"
	"github.com/Limetric/simschema/internal/sqlrow"
)

func TestFields(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	cols, args, err := sqlrow.Fields(sqlite.Dialect{}, map[string]any{
		"Pos":   simtypes.Vector3{X: 1, Y: 2, Z: 3},
		"ID":    id,
		"Note":  nil,
		"Level": int32(200),
	})
	if err != nil {
		t.Fatalf("Fields() error: %v", err)
	}
	wantCols := []string{"ID", "Level", "PosX", "PosY", "PosZ"}
	wantArgs := []any{id.String(), int64(200), float64(1), float64(2), float64(3)}
	if !reflect.DeepEqual(cols, wantCols) {
		t.Errorf("cols = %v, want %v", cols, wantCols)
	}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestFieldsUnsupported(t *testing.T) {
	_, _, err := sqlrow.Fields(sqlite.Dialect{}, map[string]any{"Bad": struct{}{}})
	if !errors.Is(err, migration.ErrUnsupportedValue) {
		t.Fatalf("Fields() error = %v, want ErrUnsupportedValue", err)
	}
	if !strings.Contains(err.Error(), "field Bad") {
		t.Errorf("error = %q, want field name", err)
	}
}

func TestFieldsUnsignedPerEngine(t *testing.T) {
	vals := map[string]any{
		"Flags":  uint32(math.MaxUint32),
		"Serial": uint64(math.MaxUint64),
		"Region": simtypes.GridVector{X: math.MaxUint32, Y: 256},
	}
	tests := []struct {
		name string
		d    sqlrow.Dialect
		want []any
	}{
		{"mssql", mssql.Dialect{}, []any{int64(-1), int64(-1), int64(256), int64(-1)}},
		{"postgres", postgres.Dialect{}, []any{int64(math.MaxUint32), int64(math.MaxUint32), int64(256), int64(-1)}},
		{"sqlite", sqlite.Dialect{}, []any{int64(math.MaxUint32), int64(math.MaxUint32), int64(256), int64(-1)}},
		{"mysql", mysql.Dialect{}, []any{uint64(math.MaxUint32), uint64(math.MaxUint32), uint64(256), uint64(math.MaxUint64)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, args, err := sqlrow.Fields(tt.d, vals)
			if err != nil {
				t.Fatalf("Fields() error: %v", err)
			}
			wantCols := []string{"Flags", "RegionX", "RegionY", "Serial"}
			if !reflect.DeepEqual(cols, wantCols) {
				t.Errorf("cols = %v, want %v", cols, wantCols)
			}
			if !reflect.DeepEqual(args, tt.want) {
				t.Errorf("args = %#v, want %#v", args, tt.want)
			}
		})
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "unsigned.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	d := sqlite.Dialect{}
	err = migration.New(db, d).MigrateTables(ctx, []migration.Element{
		migration.DeclareTable{Name: "counters"},
		migration.AddColumn{Name: "N", Type: migration.Uint64, Default: uint64(math.MaxUint64)},
		migration.AddColumn{Name: "F", Type: migration.Uint32, Default: uint32(0)},
	})
	if err != nil {
		t.Fatalf("MigrateTables() error: %v", err)
	}
	if err := sqlrow.InsertInto(ctx, db, d, "counters", map[string]any{
		"N": uint64(math.MaxUint64), "F": uint32(math.MaxUint32),
	}); err != nil {
		t.Fatalf("InsertInto() error: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO "counters" ("F") VALUES (1)`); err != nil {
		t.Fatalf("insert with default: %v", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT "N", "F" FROM "counters" ORDER BY "F" DESC`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	defer rows.Close()
	var got [][2]uint64
	for rows.Next() {
		var n, f int64
		if err := rows.Scan(&n, &f); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, [2]uint64{uint64(n), uint64(f)})
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	want := [][2]uint64{{math.MaxUint64, math.MaxUint32}, {math.MaxUint64, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestSelectList(t *testing.T) {
	got := sqlrow.SelectList(sqlite.Dialect{},
		migration.Column{Name: "ID", Type: migration.UUID},
		migration.Column{Name: "Region", Type: migration.GridVector},
	)
	want := `"ID", "RegionX", "RegionY"`
	if got != want {
		t.Errorf("SelectList() = %q, want %q", got, want)
	}
}

var rowsTable = []migration.Element{
	migration.DeclareTable{Name: "objects"},
	migration.AddColumn{Name: "ID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "Name", Type: migration.String, Cardinality: 64, Default: ""},
	migration.AddColumn{Name: "Pos", Type: migration.Vector3, Default: simtypes.Vector3{}},
	migration.SetPrimaryKey{Fields: []string{"ID"}},
}

func TestRowStatements(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "rows.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	d := sqlite.Dialect{}
	if err := migration.New(db, d).MigrateTables(ctx, rowsTable); err != nil {
		t.Fatalf("MigrateTables() error: %v", err)
	}

	id := uuid.New()
	if err := sqlrow.InsertInto(ctx, db, d, "objects", map[string]any{
		"ID": id, "Name": "box", "Pos": simtypes.Vector3{X: 1, Y: 2, Z: 3},
	}); err != nil {
		t.Fatalf("InsertInto() error: %v", err)
	}
	if err := sqlrow.ReplaceInto(ctx, db, d, "objects", map[string]any{"ID": id, "Name": "crate"}, "ID"); err != nil {
		t.Fatalf("ReplaceInto() error: %v", err)
	}
	n, err := sqlrow.UpdateSet(ctx, db, d, "objects",
		map[string]any{"Pos": simtypes.Vector3{X: 4, Y: 5, Z: 6}},
		map[string]any{"ID": id})
	if err != nil {
		t.Fatalf("UpdateSet() error: %v", err)
	}
	if n != 1 {
		t.Errorf("UpdateSet() affected %d rows, want 1", n)
	}

	var (
		gotID   sqlrow.UUID
		name    string
		x, y, z float64
	)
	err = db.QueryRowContext(ctx, `SELECT `+sqlrow.SelectList(d,
		migration.Column{Name: "ID", Type: migration.UUID},
		migration.Column{Name: "Name", Type: migration.String},
		migration.Column{Name: "Pos", Type: migration.Vector3},
	)+` FROM "objects"`).Scan(&gotID, &name, &x, &y, &z)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if gotID.UUID != id || name != "crate" || x != 4 || y != 5 || z != 6 {
		t.Errorf("row = %v %q (%v,%v,%v)", gotID.UUID, name, x, y, z)
	}
}

func TestReplaceIntoRequiresKeyValues(t *testing.T) {
	err := sqlrow.ReplaceInto(context.Background(), nil, sqlite.Dialect{}, "objects", map[string]any{"Name": "x"}, "ID")
	if err == nil || !strings.Contains(err.Error(), "key field ID has no value") {
		t.Errorf("ReplaceInto() error = %v", err)
	}
	err = sqlrow.ReplaceInto(context.Background(), nil, sqlite.Dialect{}, "objects", map[string]any{"Name": "x"})
	if err == nil || !strings.Contains(err.Error(), "no key fields") {
		t.Errorf("ReplaceInto() without keys error = %v", err)
	}
}

func TestInsideTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err = sqlrow.InsideTransaction(ctx, db, sqlite.Dialect{}.IsolationLevel(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InsideTransaction() error = %v, want boom", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}
