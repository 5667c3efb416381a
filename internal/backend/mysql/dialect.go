package mysql

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

// Dialect renders MySQL statements. Defaults are inline and restated by
// MODIFY COLUMN; the revision marker is the table comment. MySQL commits
// DDL implicitly, so a failed step can leave earlier statements of the
// same step applied.
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

// QuoteIdentifier wraps name in backticks, doubling embedded backticks.
func (Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) Unsigned() migration.UnsignedStorage { return migration.UnsignedNative }

func (Dialect) IsolationLevel() sql.IsolationLevel { return sql.LevelSerializable }

func (Dialect) ColumnType(c migration.PhysicalColumn) string {
	switch c.Type {
	case migration.String:
		switch {
		case c.Cardinality == 0 && c.Long:
			return "longtext"
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
		return "char(36)"
	case migration.Float64:
		return "double"
	case migration.Int8, migration.Enum8:
		return "tinyint"
	case migration.Uint8:
		return "tinyint unsigned"
	case migration.Int16, migration.Enum16:
		return "smallint"
	case migration.Uint16:
		return "smallint unsigned"
	case migration.Int32, migration.Enum32:
		return "int"
	case migration.Uint32:
		return "int unsigned"
	case migration.Int64, migration.Date, migration.Enum64:
		return "bigint"
	case migration.Uint64:
		return "bigint unsigned"
	case migration.Bool:
		return "tinyint(1)"
	case migration.Bytes:
		switch {
		case c.Long:
			return "longblob"
		case c.Cardinality == 0:
			return "blob"
		case c.Fixed:
			return fmt.Sprintf("binary(%d)", c.Cardinality)
		default:
			return fmt.Sprintf("varbinary(%d)", c.Cardinality)
		}
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
		r := strings.NewReplacer(`\`, `\\`, `'`, `''`)
		return "'" + r.Replace(v) + "'"
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	}
	return "NULL"
}

// isBlobType reports whether a type only accepts expression defaults.
func isBlobType(sqlType string) bool {
	switch sqlType {
	case "text", "longtext", "blob", "longblob":
		return true
	}
	return false
}

func (d Dialect) definition(c migration.PhysicalColumn) string {
	typ := d.ColumnType(c)
	def := d.QuoteIdentifier(c.Name) + " " + typ
	if c.Nullable {
		return def + " NULL"
	}
	def += " NOT NULL"
	if c.Default != nil {
		if isBlobType(typ) {
			def += " DEFAULT (" + literal(d.stored(c)) + ")"
		} else {
			def += " DEFAULT " + literal(d.stored(c))
		}
	}
	return def
}

func (d Dialect) CreateTable(table string, cols []migration.PhysicalColumn, primaryKey []string) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.QuoteIdentifier(table))
	for i, c := range cols {
		fmt.Fprintf(&b, "  %s", d.definition(c))
		if i < len(cols)-1 || len(primaryKey) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	if len(primaryKey) > 0 {
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", d.columnList(primaryKey))
	}
	b.WriteString(") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	return []string{b.String()}
}

func (d Dialect) DropTable(table string) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table))}
}

func (d Dialect) AddColumn(table string, c migration.PhysicalColumn) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), d.definition(c))}
}

// AlterColumn restates the whole column, which also replaces its default.
func (d Dialect) AlterColumn(table string, _, to migration.PhysicalColumn) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.QuoteIdentifier(table), d.definition(to))}
}

func (d Dialect) RenameColumn(table, from, to string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		d.QuoteIdentifier(table), d.QuoteIdentifier(from), d.QuoteIdentifier(to))}
}

func (d Dialect) DropColumns(table string, cols []migration.PhysicalColumn) []string {
	drops := make([]string, len(cols))
	for i, c := range cols {
		drops[i] = "DROP COLUMN " + d.QuoteIdentifier(c.Name)
	}
	return []string{fmt.Sprintf("ALTER TABLE %s %s", d.QuoteIdentifier(table), strings.Join(drops, ", "))}
}

func (d Dialect) SetPrimaryKey(table string, fields []string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", d.QuoteIdentifier(table), d.columnList(fields))}
}

func (d Dialect) DropPrimaryKey(table string) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", d.QuoteIdentifier(table))}
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

// TableRevision reads the table comment of the current database.
func (Dialect) TableRevision(ctx context.Context, q migration.Querier, table string) (uint, error) {
	var comment string
	err := q.QueryRowContext(ctx,
		"SELECT table_comment FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		table,
	).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if comment == "" {
		return 0, nil
	}
	return migration.ParseRevision(table, comment)
}

func (d Dialect) SetTableRevision(table string, rev uint, _ bool) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s COMMENT = '%d'", d.QuoteIdentifier(table), rev)}
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
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", q, q))
		}
	}
	if len(sets) == 0 {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)",
			d.QuoteIdentifier(table), d.columnList(cols), strings.Join(params, ", "))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		d.QuoteIdentifier(table), d.columnList(cols), strings.Join(params, ", "), strings.Join(sets, ", "))
}

func (d Dialect) columnList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
