// Package sqlrow builds and runs row statements from logical column values.
// Composite values bind one parameter per physical column, named and
// ordered the way migration.Expand lays the columns out.
package sqlrow

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Limetric/simschema/internal/migration"
)

// Dialect is the part of a migration dialect row statements need.
type Dialect interface {
	QuoteIdentifier(name string) string
	Placeholder(n int) string
	Upsert(table string, cols, keys []string) string
	Unsigned() migration.UnsignedStorage
}

// Execer runs statements. *sql.DB and *sql.Tx implement it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Fields expands vals into physical column names and the values bound for
// them on d, ordered by logical name. nil values are skipped.
func Fields(d Dialect, vals map[string]any) ([]string, []any, error) {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var cols []string
	var args []any
	for _, k := range keys {
		v := vals[k]
		if v == nil {
			continue
		}
		t, ok := migration.TypeOfValue(v)
		if !ok {
			return nil, nil, fmt.Errorf("field %s: %w: %T", k, migration.ErrUnsupportedValue, v)
		}
		stored, err := migration.StoredValues(v)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", k, err)
		}
		for i, comp := range migration.Expand(t) {
			cols = append(cols, k+comp.Suffix)
			args = append(args, migration.Bind(d.Unsigned(), comp.Type, stored[i]))
		}
	}
	return cols, args, nil
}

func placeholders(d Dialect, from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.Placeholder(from + i)
	}
	return out
}

func columnList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

// InsertInto inserts one row.
func InsertInto(ctx context.Context, ex Execer, d Dialect, table string, vals map[string]any) error {
	cols, args, err := Fields(d, vals)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("insert into %s: no values", table)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdentifier(table), columnList(d, cols), strings.Join(placeholders(d, 1, len(cols)), ", "))
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// ReplaceInto inserts one row or updates the row matching keys. keys are
// physical column names and must all be present in vals.
func ReplaceInto(ctx context.Context, ex Execer, d Dialect, table string, vals map[string]any, keys ...string) error {
	cols, args, err := Fields(d, vals)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("replace into %s: no key fields", table)
	}
	for _, k := range keys {
		if !slices.Contains(cols, k) {
			return fmt.Errorf("replace into %s: key field %s has no value", table, k)
		}
	}
	query := d.Upsert(table, cols, keys)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("replace into %s: %w", table, err)
	}
	return nil
}

// UpdateSet updates the rows matching every value of where and returns the
// number of affected rows.
func UpdateSet(ctx context.Context, ex Execer, d Dialect, table string, vals, where map[string]any) (int64, error) {
	cols, args, err := Fields(d, vals)
	if err != nil {
		return 0, err
	}
	whereCols, whereArgs, err := Fields(d, where)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 || len(whereCols) == 0 {
		return 0, fmt.Errorf("update %s: values and conditions are required", table)
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = d.QuoteIdentifier(c) + " = " + d.Placeholder(i+1)
	}
	conds := make([]string, len(whereCols))
	for i, c := range whereCols {
		conds[i] = d.QuoteIdentifier(c) + " = " + d.Placeholder(len(cols)+i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		d.QuoteIdentifier(table), strings.Join(sets, ", "), strings.Join(conds, " AND "))
	res, err := ex.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return res.RowsAffected()
}

// InsideTransaction runs fn in a transaction at level, committing when fn
// succeeds and rolling back otherwise.
func InsideTransaction(ctx context.Context, db *sql.DB, level sql.IsolationLevel, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SelectList returns the quoted physical columns of the given logical
// columns, for use in a SELECT.
func SelectList(d Dialect, cols ...migration.Column) string {
	var names []string
	for _, c := range cols {
		names = append(names, c.PhysicalNames()...)
	}
	return columnList(d, names)
}
