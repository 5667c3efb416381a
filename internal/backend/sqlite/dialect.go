package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Limetric/simschema/internal/migration"
)

// revisionTable stores one revision row per migrated table.
const revisionTable = "table_revisions"

// Dialect renders SQLite statements.
//
// SQLite cannot change a column in place, so AlterColumn renders nothing:
// renames, additions and removals still apply, type and default changes do
// not. Primary keys are unique indexes named <table>_pkey so they can be
// added and dropped after creation. NOT NULL columns without a default get
// the zero value of their type as default, since SQLite cannot add them
// otherwise.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) Unsigned() migration.UnsignedStorage { return migration.UnsignedWiden }

func (Dialect) IsolationLevel() sql.IsolationLevel { return sql.LevelDefault }

func (Dialect) ColumnType(c migration.PhysicalColumn) string {
	switch c.Type {
	case migration.String:
		switch {
		case c.Cardinality == 0:
			return "TEXT"
		case c.Fixed:
			return fmt.Sprintf("CHAR(%d)", c.Cardinality)
		default:
			return fmt.Sprintf("VARCHAR(%d)", c.Cardinality)
		}
	case migration.UGUI, migration.UGUIWithName, migration.UGI:
		return "VARCHAR(255)"
	case migration.UUID, migration.ParcelID:
		return "CHAR(36)"
	case migration.Float64:
		return "REAL"
	case migration.Bytes:
		return "BLOB"
	}
	return "INTEGER"
}

// stored is the default of c as the engine holds it.
func (d Dialect) stored(c migration.PhysicalColumn) any {
	return migration.Bind(d.Unsigned(), c.Type, c.Default)
}

func literal(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	}
	return "NULL"
}

func zeroLiteral(t migration.Type) string {
	switch t {
	case migration.String, migration.UGUI, migration.UGUIWithName, migration.UGI:
		return "''"
	case migration.UUID, migration.ParcelID:
		return "'00000000-0000-0000-0000-000000000000'"
	case migration.Bytes:
		return "X''"
	}
	return "0"
}

// defaultLiteral is the value a NOT NULL column takes when none is given.
func (d Dialect) defaultLiteral(c migration.PhysicalColumn) string {
	if c.Default != nil {
		return literal(d.stored(c))
	}
	return zeroLiteral(c.Type)
}

func (d Dialect) definition(c migration.PhysicalColumn) string {
	def := d.QuoteIdentifier(c.Name) + " " + d.ColumnType(c)
	if c.Nullable {
		return def
	}
	return def + " NOT NULL DEFAULT " + d.defaultLiteral(c)
}

func pkeyName(table string) string { return table + "_pkey" }

func (d Dialect) CreateTable(table string, cols []migration.PhysicalColumn, primaryKey []string) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.QuoteIdentifier(table))
	for i, c := range cols {
		fmt.Fprintf(&b, "  %s", d.definition(c))
		if i < len(cols)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(")")
	stmts := []string{b.String()}
	if len(primaryKey) > 0 {
		stmts = append(stmts, d.SetPrimaryKey(table, primaryKey)...)
	}
	return stmts
}

func (d Dialect) DropTable(table string) []string {
	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table)),
		d.createRevisionTable(),
		fmt.Sprintf("DELETE FROM %s WHERE table_name = %s", revisionTable, literal(table)),
	}
}

func (d Dialect) AddColumn(table string, c migration.PhysicalColumn) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), d.definition(c))}
}

// AlterColumn renders nothing: ChangeColumn goes through RebuildTable.
func (Dialect) AlterColumn(string, migration.PhysicalColumn, migration.PhysicalColumn) []string {
	return nil
}

// RebuildTable recreates a table through a side table, since SQLite cannot
// change the type, nullability or default of a column. NULLs copied into a
// NOT NULL column take its default. The primary key and named indexes are
// recreated once the side table takes over the name.
func (d Dialect) RebuildTable(next migration.TableState, cols []migration.PhysicalColumn, copied map[string]string) []string {
	table := d.QuoteIdentifier(next.Name)
	side := d.QuoteIdentifier(next.Name + "__rebuild")
	names := make([]string, len(cols))
	exprs := make([]string, len(cols))
	for i, c := range cols {
		names[i] = d.QuoteIdentifier(c.Name)
		old, ok := copied[c.Name]
		switch {
		case !ok && c.Nullable:
			exprs[i] = "NULL"
		case !ok:
			exprs[i] = d.defaultLiteral(c)
		case c.Nullable:
			exprs[i] = d.QuoteIdentifier(old)
		default:
			exprs[i] = fmt.Sprintf("COALESCE(%s, %s)", d.QuoteIdentifier(old), d.defaultLiteral(c))
		}
	}

	stmts := []string{"DROP TABLE IF EXISTS " + side}
	stmts = append(stmts, d.CreateTable(next.Name+"__rebuild", cols, nil)...)
	stmts = append(stmts,
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", side, strings.Join(names, ", "), strings.Join(exprs, ", "), table),
		"DROP TABLE "+table,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", side, table),
	)
	if len(next.PrimaryKey) > 0 {
		stmts = append(stmts, d.SetPrimaryKey(next.Name, next.PrimaryKey)...)
	}
	for _, idx := range next.Indexes {
		stmts = append(stmts, d.CreateIndex(next.Name, migration.IndexName(next.Name, idx.Name), idx.Fields, idx.Unique)...)
	}
	return stmts
}

func (d Dialect) RenameColumn(table, from, to string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		d.QuoteIdentifier(table), d.QuoteIdentifier(from), d.QuoteIdentifier(to))}
}

// DropColumns drops one column per statement.
func (d Dialect) DropColumns(table string, cols []migration.PhysicalColumn) []string {
	stmts := make([]string, len(cols))
	for i, c := range cols {
		stmts[i] = fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(c.Name))
	}
	return stmts
}

func (d Dialect) SetPrimaryKey(table string, fields []string) []string {
	return d.CreateIndex(table, pkeyName(table), fields, true)
}

func (d Dialect) DropPrimaryKey(table string) []string {
	return d.DropIndex(table, pkeyName(table))
}

func (d Dialect) CreateIndex(table, name string, fields []string, unique bool) []string {
	kind := ""
	if unique {
		kind = "UNIQUE "
	}
	return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		kind, d.QuoteIdentifier(name), d.QuoteIdentifier(table), d.columnList(fields))}
}

func (d Dialect) DropIndex(_, name string) []string {
	return []string{fmt.Sprintf("DROP INDEX IF EXISTS %s", d.QuoteIdentifier(name))}
}

// TableRevision reads the revision row of table. A row whose table no
// longer exists counts as absent.
func (Dialect) TableRevision(ctx context.Context, q migration.Querier, table string) (uint, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", revisionTable,
	).Scan(&n); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	var value string
	err := q.QueryRowContext(ctx,
		"SELECT CAST(r.revision AS TEXT) FROM "+revisionTable+" r JOIN sqlite_master m ON m.type = 'table' AND m.name = r.table_name WHERE r.table_name = ?",
		table,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return migration.ParseRevision(table, value)
}

func (d Dialect) SetTableRevision(table string, rev uint, _ bool) []string {
	return []string{
		d.createRevisionTable(),
		fmt.Sprintf("INSERT INTO %s (table_name, revision) VALUES (%s, %d) ON CONFLICT (table_name) DO UPDATE SET revision = excluded.revision",
			revisionTable, literal(table), rev),
	}
}

func (Dialect) createRevisionTable() string {
	return "CREATE TABLE IF NOT EXISTS " + revisionTable + " (table_name TEXT PRIMARY KEY, revision INTEGER NOT NULL)"
}

func (d Dialect) Upsert(table string, cols, keys []string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	params := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		params[i] = "?"
		if !isKey[c] {
			q := d.QuoteIdentifier(c)
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", q, q))
		}
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		d.QuoteIdentifier(table), d.columnList(cols), strings.Join(params, ", "), d.columnList(keys), action)
}

func (d Dialect) columnList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
