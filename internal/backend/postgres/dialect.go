package postgres

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Limetric/simschema/internal/migration"
)

// Dialect renders PostgreSQL statements. Defaults are declared inline and
// changed with SET/DROP DEFAULT, so constraint names are not needed. The
// revision marker is the table comment.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) QuoteIdentifier(name string) string { return ident(name) }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) Unsigned() migration.UnsignedStorage { return migration.UnsignedWiden }

func (Dialect) IsolationLevel() sql.IsolationLevel { return sql.LevelSerializable }

// ColumnType maps unsigned types one size up where they do not fit; 64-bit
// unsigned values share bigint with their signed counterpart.
func (Dialect) ColumnType(c migration.PhysicalColumn) string {
	switch c.Type {
	case migration.String:
		switch {
		case c.Cardinality == 0:
			return "text"
		case c.Fixed:
			return fmt.Sprintf("char(%d)", c.Cardinality)
		default:
			return fmt.Sprintf("varchar(%d)", c.Cardinality)
		}
	case migration.UGUI, migration.UGUIWithName, migration.UGI:
		return "varchar(255)"
	case migration.UUID, migration.ParcelID:
		return "uuid"
	case migration.Float64:
		return "double precision"
	case migration.Int8, migration.Uint8, migration.Int16, migration.Enum8, migration.Enum16:
		return "smallint"
	case migration.Uint16, migration.Int32, migration.Enum32:
		return "integer"
	case migration.Uint32, migration.Int64, migration.Uint64, migration.Date, migration.Enum64:
		return "bigint"
	case migration.Bool:
		return "boolean"
	case migration.Bytes:
		return "bytea"
	}
	return "text"
}

// stored is the default of c as the engine holds it.
func (d Dialect) stored(c migration.PhysicalColumn) any {
	return migration.Bind(d.Unsigned(), c.Type, c.Default)
}

func literal(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return `'\x` + hex.EncodeToString(v) + "'"
	}
	return "NULL"
}

func (d Dialect) definition(c migration.PhysicalColumn) string {
	def := ident(c.Name) + " " + d.ColumnType(c)
	if c.Nullable {
		return def
	}
	def += " NOT NULL"
	if c.Default != nil {
		def += " DEFAULT " + literal(d.stored(c))
	}
	return def
}

func pkeyName(table string) string { return ident(table + "_pkey") }

func (d Dialect) CreateTable(table string, cols []migration.PhysicalColumn, primaryKey []string) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", ident(table))
	for i, c := range cols {
		fmt.Fprintf(&b, "  %s", d.definition(c))
		if i < len(cols)-1 || len(primaryKey) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	if len(primaryKey) > 0 {
		fmt.Fprintf(&b, "  CONSTRAINT %s PRIMARY KEY (%s)\n", pkeyName(table), columnList(primaryKey))
	}
	b.WriteString(")")
	return []string{b.String()}
}

func (Dialect) DropTable(table string) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", ident(table))}
}

func (d Dialect) AddColumn(table string, c migration.PhysicalColumn) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", ident(table), d.definition(c))}
}

// AlterColumn emits one ALTER TABLE with only the actions that change
// something.
func (d Dialect) AlterColumn(table string, from, to migration.PhysicalColumn) []string {
	col := ident(to.Name)
	var actions []string
	if from.Default != nil {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col))
	}
	if newType := d.ColumnType(to); newType != d.ColumnType(from) {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s TYPE %s USING %s::%s", col, newType, col, newType))
	}
	if from.Nullable != to.Nullable {
		if to.Nullable {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col))
		} else {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col))
		}
	}
	if to.Default != nil && !to.Nullable {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col, literal(d.stored(to))))
	}
	if len(actions) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s %s", ident(table), strings.Join(actions, ", "))}
}

func (Dialect) RenameColumn(table, from, to string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", ident(table), ident(from), ident(to))}
}

func (Dialect) DropColumns(table string, cols []migration.PhysicalColumn) []string {
	drops := make([]string, len(cols))
	for i, c := range cols {
		drops[i] = "DROP COLUMN " + ident(c.Name)
	}
	return []string{fmt.Sprintf("ALTER TABLE %s %s", ident(table), strings.Join(drops, ", "))}
}

func (Dialect) SetPrimaryKey(table string, fields []string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)", ident(table), pkeyName(table), columnList(fields))}
}

func (Dialect) DropPrimaryKey(table string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", ident(table), pkeyName(table))}
}

func (Dialect) CreateIndex(table, name string, fields []string, unique bool) []string {
	kind := ""
	if unique {
		kind = "UNIQUE "
	}
	return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", kind, ident(name), ident(table), columnList(fields))}
}

func (Dialect) DropIndex(_, name string) []string {
	return []string{fmt.Sprintf("DROP INDEX IF EXISTS %s", ident(name))}
}

// TableRevision reads the table comment. A missing table yields NULL.
func (Dialect) TableRevision(ctx context.Context, q migration.Querier, table string) (uint, error) {
	var value sql.NullString
	err := q.QueryRowContext(ctx, "SELECT obj_description(to_regclass($1), 'pg_class')", ident(table)).Scan(&value)
	if err != nil {
		return 0, err
	}
	if !value.Valid || value.String == "" {
		return 0, nil
	}
	return migration.ParseRevision(table, value.String)
}

func (Dialect) SetTableRevision(table string, rev uint, _ bool) []string {
	return []string{fmt.Sprintf("COMMENT ON TABLE %s IS '%d'", ident(table), rev)}
}

func (d Dialect) Upsert(table string, cols, keys []string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	params := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		params[i] = d.Placeholder(i + 1)
		if !isKey[c] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", ident(c), ident(c)))
		}
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		ident(table), columnList(cols), strings.Join(params, ", "), columnList(keys), action)
}

func columnList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}
