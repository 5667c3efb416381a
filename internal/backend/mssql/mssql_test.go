package mssql

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
)

func TestDSN(t *testing.T) {
	b := &mssqlBackend{}
	dsn, err := b.DSN(backend.Conn{Server: "sql.local", Database: "opensim", Username: "sa", Password: "p;w=d"})
	if err != nil {
		t.Fatalf("DSN() error: %v", err)
	}
	cfg, err := msdsn.Parse(dsn)
	if err != nil {
		t.Fatalf("msdsn.Parse(%q) error: %v", dsn, err)
	}
	if cfg.Host != "sql.local" || cfg.Port != 1433 || cfg.Database != "opensim" {
		t.Errorf("parsed = %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}
	if cfg.User != "sa" || cfg.Password != "p;w=d" {
		t.Errorf("credentials = %q/%q", cfg.User, cfg.Password)
	}

	if _, err := b.DSN(backend.Conn{Server: "sql.local"}); err == nil {
		t.Error("expected error without database")
	}
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		col  migration.PhysicalColumn
		want string
	}{
		{migration.PhysicalColumn{Type: migration.String, Cardinality: 64}, "nvarchar(64)"},
		{migration.PhysicalColumn{Type: migration.String, Cardinality: 36, Fixed: true}, "nchar(36)"},
		{migration.PhysicalColumn{Type: migration.String}, "nvarchar(4000)"},
		{migration.PhysicalColumn{Type: migration.String, Long: true}, "nvarchar(max)"},
		{migration.PhysicalColumn{Type: migration.Bytes, Long: true}, "varbinary(max)"},
		{migration.PhysicalColumn{Type: migration.UUID}, "uniqueidentifier"},
		{migration.PhysicalColumn{Type: migration.UGUIWithName}, "nvarchar(255)"},
		{migration.PhysicalColumn{Type: migration.Uint32}, "integer"},
		{migration.PhysicalColumn{Type: migration.Enum8}, "smallint"},
		{migration.PhysicalColumn{Type: migration.Date}, "bigint"},
		{migration.PhysicalColumn{Type: migration.Float64}, "float(53)"},
		{migration.PhysicalColumn{Type: migration.Bool}, "bit"},
	}
	for _, tt := range tests {
		if got := (Dialect{}).ColumnType(tt.col); got != tt.want {
			t.Errorf("ColumnType(%v) = %q, want %q", tt.col.Type, got, tt.want)
		}
	}
}

func TestAlterColumn(t *testing.T) {
	from := migration.PhysicalColumn{Name: "Flags", Type: migration.Int32, Default: int64(0), DefaultName: "DF_t_Flags"}
	to := migration.PhysicalColumn{Name: "Flags", Type: migration.Int64, Nullable: true}
	got := Dialect{}.AlterColumn("t", from, to)
	want := []string{
		"ALTER TABLE [t] DROP CONSTRAINT IF EXISTS [DF_t_Flags]",
		"ALTER TABLE [t] ALTER COLUMN [Flags] bigint NULL",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AlterColumn() = %q, want %q", got, want)
	}
}

func TestUnsignedDefaultKeepsBits(t *testing.T) {
	c := migration.Column{Name: "Flags", Type: migration.Uint32, Default: uint32(math.MaxUint32)}
	phys, err := c.Physical("t")
	if err != nil {
		t.Fatalf("Physical() error: %v", err)
	}
	got := Dialect{}.AddColumn("t", phys[0])
	want := []string{"ALTER TABLE [t] ADD [Flags] integer NOT NULL CONSTRAINT [DF_t_Flags] DEFAULT -1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AddColumn() = %q, want %q", got, want)
	}
}

func TestDropColumns(t *testing.T) {
	cols := []migration.PhysicalColumn{
		{Name: "PosX", Type: migration.Float64, Default: float64(0), DefaultName: "DF_t_PosX"},
		{Name: "Note", Type: migration.String, Nullable: true},
	}
	got := Dialect{}.DropColumns("t", cols)
	want := []string{
		"ALTER TABLE [t] DROP CONSTRAINT IF EXISTS [DF_t_PosX]",
		"ALTER TABLE [t] DROP COLUMN [PosX], [Note]",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DropColumns() = %q, want %q", got, want)
	}
}

func TestRenameColumnEscapes(t *testing.T) {
	got := Dialect{}.RenameColumn("o'brien", "a", "b")[0]
	want := "EXEC sp_rename N'dbo.o''brien.a', N'b', N'COLUMN'"
	if got != want {
		t.Errorf("RenameColumn() = %q, want %q", got, want)
	}
}

func TestSetTableRevision(t *testing.T) {
	got := Dialect{}.SetTableRevision("regions", 4, false)[0]
	if !strings.HasPrefix(got, "EXEC sys.sp_updateextendedproperty @name=N'table_revision', @value=N'4'") {
		t.Errorf("SetTableRevision() = %q", got)
	}
	if !strings.HasSuffix(got, "@level1name=N'regions'") {
		t.Errorf("SetTableRevision() = %q, want table name last", got)
	}
}

func TestUpsert(t *testing.T) {
	got := Dialect{}.Upsert("names", []string{"ID", "Name"}, []string{"ID"})
	want := "IF EXISTS (SELECT 1 FROM [names] WHERE [ID] = @p1) UPDATE [names] SET [Name] = @p2 WHERE [ID] = @p1 " +
		"ELSE INSERT INTO [names] ([ID], [Name]) VALUES (@p1, @p2)"
	if got != want {
		t.Errorf("Upsert() =\n  %s\nwant:\n  %s", got, want)
	}

	got = Dialect{}.Upsert("names", []string{"ID"}, []string{"ID"})
	want = "IF NOT EXISTS (SELECT 1 FROM [names] WHERE [ID] = @p1) INSERT INTO [names] ([ID]) VALUES (@p1)"
	if got != want {
		t.Errorf("Upsert() keys only = %q, want %q", got, want)
	}
}
