// Package migration brings database tables to the shape declared by a
// linear stream of migration elements and records the reached revision in
// the database itself.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
)

// Migrator applies element streams to one database.
type Migrator struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	stopAt    uint
	dropFirst bool
	maxSeen   uint
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStopAtRevision migrates every table at most up to rev. Zero means no
// limit.
func WithStopAtRevision(rev uint) Option {
	return func(m *Migrator) { m.stopAt = rev }
}

// WithDropTablesFirst drops every table of the stream before migrating it.
func WithDropTablesFirst(drop bool) Option {
	return func(m *Migrator) { m.dropFirst = drop }
}

// New returns a Migrator that runs statements rendered by d against db.
func New(db *sql.DB, d Dialect, opts ...Option) *Migrator {
	m := &Migrator{db: db, dialect: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MigrateTables is a convenience wrapper around New(db, d).MigrateTables.
func MigrateTables(ctx context.Context, db *sql.DB, d Dialect, elements []Element, logger *slog.Logger) error {
	return New(db, d, WithLogger(logger)).MigrateTables(ctx, elements)
}

// GetTableRevision reads the stored revision of table, 0 when absent.
func GetTableRevision(ctx context.Context, db *sql.DB, d Dialect, table string) (uint, error) {
	return d.TableRevision(ctx, db, table)
}

// MaxAvailableRevision returns the highest revision declared by any table
// migrated so far.
func (m *Migrator) MaxAvailableRevision() uint {
	return m.maxSeen
}

// TableRevision reads the stored revision of table, 0 when absent.
func (m *Migrator) TableRevision(ctx context.Context, table string) (uint, error) {
	rev, err := m.dialect.TableRevision(ctx, m.db, table)
	if err != nil {
		return 0, fmt.Errorf("read revision of %s: %w", table, err)
	}
	return rev, nil
}

// MigrateTables validates elements and brings every table they declare to
// its last revision. A table without a stored revision is created in one
// step from its final shape; otherwise each missing revision runs in its
// own transaction together with its revision marker. Tables already at
// their last revision are left untouched.
func (m *Migrator) MigrateTables(ctx context.Context, elements []Element) error {
	plans, err := Plan(m.dialect, elements)
	if err != nil {
		return err
	}
	for _, p := range plans {
		if err := m.migrateTable(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) migrateTable(ctx context.Context, p TablePlan) error {
	latest := p.MaxRevision()
	m.maxSeen = max(m.maxSeen, latest)
	target := latest
	if m.stopAt > 0 && m.stopAt < target {
		target = m.stopAt
	}

	if m.dropFirst {
		m.logger.Info("dropping table", "table", p.Table)
		if err := m.run(ctx, p.Table, 0, m.dialect.DropTable(p.Table)); err != nil {
			return err
		}
	}

	current, err := m.TableRevision(ctx, p.Table)
	if err != nil {
		return err
	}

	switch {
	case current == 0:
		stmts, err := p.Create(m.dialect, target)
		if err != nil {
			return err
		}
		m.logger.Info("creating table", "table", p.Table, "revision", target)
		return m.run(ctx, p.Table, target, stmts)

	case current > latest:
		return fmt.Errorf("table %s: %w: stored %d, declared %d", p.Table, ErrRevisionAhead, current, latest)

	case current >= target:
		m.logger.Debug("table up to date", "table", p.Table, "revision", current)
		return nil
	}

	for r := current + 1; r <= target; r++ {
		m.logger.Info("migrating table", "table", p.Table, "from", r-1, "to", r)
		stmts := slices.Concat(p.Steps[r-1].Statements, m.dialect.SetTableRevision(p.Table, r, false))
		if err := m.run(ctx, p.Table, r, stmts); err != nil {
			return err
		}
	}
	return nil
}

// run executes stmts in one transaction. A failing statement rolls the
// transaction back.
func (m *Migrator) run(ctx context.Context, table string, rev uint, stmts []string) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: m.dialect.IsolationLevel()})
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", table, err)
	}
	for _, stmt := range stmts {
		m.logger.Debug("executing statement", "table", table, "sql", stmt)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			m.logger.Debug("statement failed", "table", table, "revision", rev, "sql", stmt, "error", err)
			_ = tx.Rollback()
			return fmt.Errorf("migrate %s to revision %d: %w\nSQL: %s", table, rev, err, stmt)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s revision %d: %w", table, rev, err)
	}
	return nil
}

// ParseRevision parses a stored revision marker.
func ParseRevision(table, value string) (uint, error) {
	rev, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("revision marker of %s is not a revision: %q", table, value)
	}
	return uint(rev), nil
}
