package mssql

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

// revisionProperty is the extended property holding a table's revision.
const revisionProperty = "table_revision"

// Dialect renders SQL Server statements. Defaults are named constraints
// so they can be dropped before a column is altered or removed.
type Dialect struct{}

func (Dialect) Name() string { return "mssql" }

// QuoteIdentifier brackets name, doubling closing brackets.
func (Dialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (Dialect) Unsigned() migration.UnsignedStorage { return migration.UnsignedSameWidth }

func (Dialect) IsolationLevel() sql.IsolationLevel { return sql.LevelSerializable }

func (Dialect) ColumnType(c migration.PhysicalColumn) string {
	switch c.Type {
	case migration.String:
		switch {
		case c.Cardinality == 0 && c.Long:
			return "nvarchar(max)"
		case c.Cardinality == 0:
			return "nvarchar(4000)"
		case c.Fixed:
			return fmt.Sprintf("nchar(%d)", c.Cardinality)
		default:
			return fmt.Sprintf("nvarchar(%d)", c.Cardinality)
		}
	case migration.UGUI, migration.UGUIWithName, migration.UGI:
		return "nvarchar(255)"
	case migration.UUID, migration.ParcelID:
		return "uniqueidentifier"
	case migration.Float64:
		return "float(53)"
	case migration.Int8, migration.Uint8, migration.Int16, migration.Uint16, migration.Enum8, migration.Enum16:
		return "smallint"
	case migration.Int32, migration.Uint32, migration.Enum32:
		return "integer"
	case migration.Int64, migration.Uint64, migration.Date, migration.Enum64:
		return "bigint"
	case migration.Bool:
		return "bit"
	case migration.Bytes:
		switch {
		case c.Long:
			return "varbinary(max)"
		case c.Cardinality == 0:
			return "varbinary(8000)"
		case c.Fixed:
			return fmt.Sprintf("binary(%d)", c.Cardinality)
		default:
			return fmt.Sprintf("varbinary(%d)", c.Cardinality)
		}
	}
	return "sql_variant"
}

// literal renders a stored default value.
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
		return "0x" + hex.EncodeToString(v)
	}
	return "NULL"
}

func (d Dialect) definition(c migration.PhysicalColumn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", d.QuoteIdentifier(c.Name), d.ColumnType(c))
	if c.Nullable {
		b.WriteString(" NULL")
		return b.String()
	}
	b.WriteString(" NOT NULL")
	if c.Default != nil {
		fmt.Fprintf(&b, " CONSTRAINT %s DEFAULT %s", d.QuoteIdentifier(c.DefaultName), literal(d.stored(c)))
	}
	return b.String()
}

func (d Dialect) CreateTable(table string, cols []migration.PhysicalColumn, primaryKey []string) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.QuoteIdentifier(table))
	for i, c := range cols {
		b.WriteString("  ")
		b.WriteString(d.definition(c))
		if i < len(cols)-1 || len(primaryKey) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	if len(primaryKey) > 0 {
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", d.columnList(primaryKey))
	}
	b.WriteString(")")
	return []string{b.String()}
}

func (d Dialect) DropTable(table string) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table))}
}

func (d Dialect) AddColumn(table string, c migration.PhysicalColumn) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s", d.QuoteIdentifier(table), d.definition(c))}
}

func (d Dialect) AlterColumn(table string, from, to migration.PhysicalColumn) []string {
	t := d.QuoteIdentifier(table)
	var stmts []string
	if from.Default != nil {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", t, d.QuoteIdentifier(from.DefaultName)))
	}
	null := " NOT NULL"
	if to.Nullable {
		null = " NULL"
	}
	stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s%s", t, d.QuoteIdentifier(to.Name), d.ColumnType(to), null))
	if to.Default != nil && !to.Nullable {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
			t, d.QuoteIdentifier(to.DefaultName), literal(d.stored(to)), d.QuoteIdentifier(to.Name)))
	}
	return stmts
}

func (Dialect) RenameColumn(table, from, to string) []string {
	return []string{fmt.Sprintf("EXEC sp_rename N'dbo.%s.%s', N'%s', N'COLUMN'",
		escape(table), escape(from), escape(to))}
}

func (d Dialect) DropColumns(table string, cols []migration.PhysicalColumn) []string {
	t := d.QuoteIdentifier(table)
	var stmts []string
	names := make([]string, len(cols))
	for i, c := range cols {
		if c.Default != nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", t, d.QuoteIdentifier(c.DefaultName)))
		}
		names[i] = c.Name
	}
	return append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", t, d.columnList(names)))
}

func (d Dialect) SetPrimaryKey(table string, fields []string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", d.QuoteIdentifier(table), d.columnList(fields))}
}

// DropPrimaryKey looks the constraint name up, since keys declared inline
// get a generated name.
func (d Dialect) DropPrimaryKey(table string) []string {
	return []string{fmt.Sprintf(`DECLARE @pk nvarchar(256);
SELECT @pk = name FROM sys.key_constraints WHERE type = 'PK' AND parent_object_id = OBJECT_ID(N'dbo.%s');
IF @pk IS NOT NULL EXEC(N'ALTER TABLE %s DROP CONSTRAINT [' + @pk + N']')`,
		escape(table), escape(d.QuoteIdentifier(table)))}
}

func (d Dialect) CreateIndex(table, name string, fields []string, unique bool) []string {
	kind := ""
	if unique {
		kind = "UNIQUE "
	}
	return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		kind, d.QuoteIdentifier(name), d.QuoteIdentifier(table), d.columnList(fields))}
}

func (d Dialect) DropIndex(table, name string) []string {
	return []string{fmt.Sprintf("DROP INDEX %s ON %s", d.QuoteIdentifier(name), d.QuoteIdentifier(table))}
}

// TableRevision reads the table_revision extended property.
func (Dialect) TableRevision(ctx context.Context, q migration.Querier, table string) (uint, error) {
	var value sql.NullString
	err := q.QueryRowContext(ctx,
		"SELECT CAST(value AS varchar(255)) AS value FROM sys.extended_properties WHERE major_id = OBJECT_ID(@p1) AND name = N'"+revisionProperty+"'",
		"dbo."+table,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return migration.ParseRevision(table, value.String)
}

func (Dialect) SetTableRevision(table string, rev uint, created bool) []string {
	proc := "sp_updateextendedproperty"
	if created {
		proc = "sp_addextendedproperty"
	}
	return []string{fmt.Sprintf(
		"EXEC sys.%s @name=N'%s', @value=N'%d', @level0type=N'SCHEMA', @level0name=N'dbo', @level1type=N'TABLE', @level1name=N'%s'",
		proc, revisionProperty, rev, escape(table))}
}

// Upsert updates the row matching keys or inserts it when absent.
func (d Dialect) Upsert(table string, cols, keys []string) string {
	t := d.QuoteIdentifier(table)
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i + 1
	}
	isKey := make(map[string]bool, len(keys))
	where := make([]string, len(keys))
	for i, k := range keys {
		isKey[k] = true
		where[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(k), d.Placeholder(pos[k]))
	}
	var sets, params []string
	for i, c := range cols {
		params = append(params, d.Placeholder(i+1))
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = %s", d.QuoteIdentifier(c), d.Placeholder(i+1)))
		}
	}
	cond := strings.Join(where, " AND ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t, d.columnList(cols), strings.Join(params, ", "))
	if len(sets) == 0 {
		return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM %s WHERE %s) %s", t, cond, insert)
	}
	return fmt.Sprintf("IF EXISTS (SELECT 1 FROM %s WHERE %s) UPDATE %s SET %s WHERE %s ELSE %s",
		t, cond, t, strings.Join(sets, ", "), cond, insert)
}

func (d Dialect) columnList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
