// Package avatarname caches the display names of avatars from any grid.
package avatarname

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Limetric/simschema/internal/migration"
	"github.com/Limetric/simschema/internal/simtypes"
	"github.com/Limetric/simschema/internal/sqlrow"
)

const table = "avatarnames"

// Migrations declares the avatarnames table.
var Migrations = []migration.Element{
	migration.DeclareTable{Name: table},
	migration.AddColumn{Name: "AvatarID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "HomeURI", Type: migration.String, Cardinality: 255, Default: ""},
	migration.AddColumn{Name: "FirstName", Type: migration.String, Cardinality: 255, Default: ""},
	migration.AddColumn{Name: "LastName", Type: migration.String, Cardinality: 255, Default: ""},
	migration.SetPrimaryKey{Fields: []string{"AvatarID", "HomeURI"}},
}

var ErrNotFound = errors.New("avatar name not found")

type Service struct {
	db *sql.DB
	d  migration.Dialect
}

func New(db *sql.DB, d migration.Dialect) *Service {
	return &Service{db: db, d: d}
}

// Store records the name of an avatar. Entries without a home URI are
// local avatars and are not cached.
func (s *Service) Store(ctx context.Context, u simtypes.UGUIWithName) error {
	if u.HomeURI == "" {
		return nil
	}
	return sqlrow.ReplaceInto(ctx, s.db, s.d, table, map[string]any{
		"AvatarID":  u.ID,
		"HomeURI":   u.HomeURI,
		"FirstName": u.FirstName,
		"LastName":  u.LastName,
	}, "AvatarID", "HomeURI")
}

// Get returns the cached name of id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (simtypes.UGUIWithName, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s = %s",
		s.d.QuoteIdentifier("HomeURI"), s.d.QuoteIdentifier("FirstName"), s.d.QuoteIdentifier("LastName"),
		s.d.QuoteIdentifier(table), s.d.QuoteIdentifier("AvatarID"), s.d.Placeholder(1))
	u := simtypes.UGUIWithName{ID: id}
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&u.HomeURI, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return simtypes.UGUIWithName{}, ErrNotFound
	}
	if err != nil {
		return simtypes.UGUIWithName{}, fmt.Errorf("query %s: %w", table, err)
	}
	return u, nil
}

// Search returns the avatars named exactly first last.
func (s *Service) Search(ctx context.Context, first, last string) ([]simtypes.UGUIWithName, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = %s AND %s = %s",
		s.d.QuoteIdentifier("AvatarID"), s.d.QuoteIdentifier("HomeURI"), s.d.QuoteIdentifier("FirstName"), s.d.QuoteIdentifier("LastName"),
		s.d.QuoteIdentifier(table),
		s.d.QuoteIdentifier("FirstName"), s.d.Placeholder(1), s.d.QuoteIdentifier("LastName"), s.d.Placeholder(2))
	rows, err := s.db.QueryContext(ctx, query, first, last)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	var out []simtypes.UGUIWithName
	for rows.Next() {
		var (
			u  simtypes.UGUIWithName
			id sqlrow.UUID
		)
		if err := rows.Scan(&id, &u.HomeURI, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		u.ID = id.UUID
		out = append(out, u)
	}
	return out, rows.Err()
}

// Remove deletes the cached name of id and reports whether one existed.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		s.d.QuoteIdentifier(table), s.d.QuoteIdentifier("AvatarID"), s.d.Placeholder(1))
	res, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
