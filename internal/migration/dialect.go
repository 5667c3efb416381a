package migration

import (
	"context"
	"database/sql"
)

// Querier runs single-row queries. *sql.DB and *sql.Tx implement it.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect renders schema changes and revision markers for one database
// engine. Statement methods return the statements in execution order.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	// Placeholder returns the bind placeholder for the n-th parameter, from 1.
	Placeholder(n int) string

	// ColumnType returns the bare SQL type of a physical column.
	ColumnType(c PhysicalColumn) string
	// Unsigned reports how the engine holds unsigned integer columns.
	Unsigned() UnsignedStorage

	CreateTable(table string, cols []PhysicalColumn, primaryKey []string) []string
	DropTable(table string) []string
	AddColumn(table string, c PhysicalColumn) []string
	// AlterColumn changes a column in place. from describes the column as
	// it currently exists, already carrying the name of to.
	AlterColumn(table string, from, to PhysicalColumn) []string
	RenameColumn(table, from, to string) []string
	DropColumns(table string, cols []PhysicalColumn) []string
	SetPrimaryKey(table string, fields []string) []string
	DropPrimaryKey(table string) []string
	CreateIndex(table, name string, fields []string, unique bool) []string
	DropIndex(table, name string) []string

	// TableRevision reads the stored revision of table; 0 when the table
	// or its marker does not exist.
	TableRevision(ctx context.Context, q Querier, table string) (uint, error)
	// SetTableRevision stores rev for table. created is true when the
	// table has just been created and carries no marker yet.
	SetTableRevision(table string, rev uint, created bool) []string
	// IsolationLevel is the isolation used for each revision step.
	IsolationLevel() sql.IsolationLevel

	// Upsert renders an insert of cols that updates the non-key columns
	// when a row matching keys already exists. Parameters are bound in
	// cols order.
	Upsert(table string, cols, keys []string) string
}

// TableRebuilder is implemented by dialects that cannot change a column in
// place. A ChangeColumn on such a dialect renders RebuildTable instead of
// AlterColumn: the table is recreated as next, whose physical columns are
// cols. copied maps the physical columns whose rows carry over to their
// current names; the others start from their default.
type TableRebuilder interface {
	RebuildTable(next TableState, cols []PhysicalColumn, copied map[string]string) []string
}
