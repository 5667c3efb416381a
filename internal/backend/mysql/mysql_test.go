package mysql

import (
	"reflect"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
)

func TestDSN(t *testing.T) {
	b := &mysqlBackend{}
	dsn, err := b.DSN(backend.Conn{Server: "db.local", Database: "sim", Username: "opensim", Password: "p@ss"})
	if err != nil {
		t.Fatalf("DSN() error: %v", err)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q) error: %v", dsn, err)
	}
	if cfg.Addr != "db.local:3306" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, "db.local:3306")
	}
	if cfg.DBName != "sim" || cfg.User != "opensim" || cfg.Passwd != "p@ss" {
		t.Errorf("cfg = %s/%s/%s", cfg.DBName, cfg.User, cfg.Passwd)
	}
	if !cfg.ParseTime || !cfg.InterpolateParams {
		t.Errorf("session options missing from %q", dsn)
	}

	if _, err := b.DSN(backend.Conn{Database: "sim"}); err == nil || !strings.Contains(err.Error(), "server") {
		t.Errorf("DSN() without server error = %v", err)
	}
}

func TestWithSessionOptions_InvalidDSN(t *testing.T) {
	if _, err := withSessionOptions("://bad-dsn"); err == nil {
		t.Fatal("expected error for invalid DSN")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	got := Dialect{}.QuoteIdentifier("my`table")
	want := "`my``table`"
	if got != want {
		t.Errorf("QuoteIdentifier() = %q, want %q", got, want)
	}
}

func TestCreateTable(t *testing.T) {
	d := Dialect{}
	cols := []migration.PhysicalColumn{
		{Name: "ID", Type: migration.UUID, Default: "00000000-0000-0000-0000-000000000000"},
		{Name: "Notes", Type: migration.String, Default: "it's"},
		{Name: "Flags", Type: migration.Uint32, Default: int64(0)},
		{Name: "Seen", Type: migration.Date, Nullable: true},
	}
	got := d.CreateTable("accounts", cols, []string{"ID"})
	want := []string{"CREATE TABLE `accounts` (\n" +
		"  `ID` char(36) NOT NULL DEFAULT '00000000-0000-0000-0000-000000000000',\n" +
		"  `Notes` text NOT NULL DEFAULT ('it''s'),\n" +
		"  `Flags` int unsigned NOT NULL DEFAULT 0,\n" +
		"  `Seen` bigint NULL,\n" +
		"  PRIMARY KEY (`ID`)\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CreateTable() =\n%s\nwant:\n%s", got[0], want[0])
	}
}

func TestAlterColumn(t *testing.T) {
	d := Dialect{}
	from := migration.PhysicalColumn{Name: "Flags", Type: migration.Int32, Default: int64(0)}
	to := migration.PhysicalColumn{Name: "Flags", Type: migration.Uint32, Default: int64(1)}
	got := d.AlterColumn("accounts", from, to)
	want := []string{"ALTER TABLE `accounts` MODIFY COLUMN `Flags` int unsigned NOT NULL DEFAULT 1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AlterColumn() = %q, want %q", got, want)
	}
}

func TestSetTableRevision(t *testing.T) {
	got := Dialect{}.SetTableRevision("accounts", 7, false)
	want := []string{"ALTER TABLE `accounts` COMMENT = '7'"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SetTableRevision() = %q, want %q", got, want)
	}
}

func TestUpsert(t *testing.T) {
	d := Dialect{}
	got := d.Upsert("names", []string{"ID", "Name"}, []string{"ID"})
	want := "INSERT INTO `names` (`ID`, `Name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `Name` = VALUES(`Name`)"
	if got != want {
		t.Errorf("Upsert() = %q, want %q", got, want)
	}
	got = d.Upsert("names", []string{"ID"}, []string{"ID"})
	want = "INSERT IGNORE INTO `names` (`ID`) VALUES (?)"
	if got != want {
		t.Errorf("Upsert() keys only = %q, want %q", got, want)
	}
}
