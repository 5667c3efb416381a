// Package travelingdata stores the sessions of agents visiting from or
// traveling to other grids.
package travelingdata

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

const table = "travelingdata"

// Migrations declares the travelingdata table.
var Migrations = []migration.Element{
	migration.DeclareTable{Name: table},
	migration.AddColumn{Name: "SessionID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "UserID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "GridExternalName", Type: migration.String, Cardinality: 255},
	migration.AddColumn{Name: "ServiceToken", Type: migration.String, Cardinality: 255},
	migration.AddColumn{Name: "ClientIPAddress", Type: migration.String},
	migration.AddColumn{Name: "Timestamp", Type: migration.Date, Default: simtypes.DateFromUnix(0)},
	migration.SetPrimaryKey{Fields: []string{"SessionID"}},
	migration.CreateNamedIndex{Name: "UserIDSessionID", Fields: []string{"UserID", "SessionID"}, Unique: true},
}

var columns = []migration.Column{
	{Name: "SessionID", Type: migration.UUID},
	{Name: "UserID", Type: migration.UUID},
	{Name: "GridExternalName", Type: migration.String},
	{Name: "ServiceToken", Type: migration.String},
	{Name: "ClientIPAddress", Type: migration.String},
	{Name: "Timestamp", Type: migration.Date},
}

// ErrNotFound is returned when no session matches.
var ErrNotFound = errors.New("traveling data not found")

// Info describes one traveling session.
type Info struct {
	SessionID        uuid.UUID
	UserID           uuid.UUID
	GridExternalName string
	ServiceToken     string
	ClientIPAddress  string
	Timestamp        simtypes.Date
}

type Service struct {
	db *sql.DB
	d  migration.Dialect
}

func New(db *sql.DB, d migration.Dialect) *Service {
	return &Service{db: db, d: d}
}

func (s *Service) Store(ctx context.Context, info Info) error {
	return sqlrow.ReplaceInto(ctx, s.db, s.d, table, map[string]any{
		"SessionID":        info.SessionID,
		"UserID":           info.UserID,
		"GridExternalName": info.GridExternalName,
		"ServiceToken":     info.ServiceToken,
		"ClientIPAddress":  info.ClientIPAddress,
		"Timestamp":        info.Timestamp,
	}, "SessionID")
}

func (s *Service) Get(ctx context.Context, sessionID uuid.UUID) (Info, error) {
	list, err := s.query(ctx, "SessionID", sessionID)
	if err != nil {
		return Info{}, err
	}
	if len(list) == 0 {
		return Info{}, ErrNotFound
	}
	return list[0], nil
}

// ByUser returns every session of userID.
func (s *Service) ByUser(ctx context.Context, userID uuid.UUID) ([]Info, error) {
	return s.query(ctx, "UserID", userID)
}

// Remove deletes a session and reports whether it existed.
func (s *Service) Remove(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return s.delete(ctx, "SessionID", sessionID)
}

// RemoveByUser deletes every session of userID.
func (s *Service) RemoveByUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.delete(ctx, "UserID", userID)
}

func (s *Service) query(ctx context.Context, field string, id uuid.UUID) ([]Info, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		sqlrow.SelectList(s.d, columns...), s.d.QuoteIdentifier(table), s.d.QuoteIdentifier(field), s.d.Placeholder(1))
	rows, err := s.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	var out []Info
	for rows.Next() {
		var (
			info          Info
			session, user sqlrow.UUID
			ts            sqlrow.Date
		)
		if err := rows.Scan(&session, &user, &info.GridExternalName, &info.ServiceToken, &info.ClientIPAddress, &ts); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		info.SessionID = session.UUID
		info.UserID = user.UUID
		info.Timestamp = ts.Date
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *Service) delete(ctx context.Context, field string, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", s.d.QuoteIdentifier(table), s.d.QuoteIdentifier(field), s.d.Placeholder(1))
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
