// Package useraccount stores the local user accounts of a grid and the
// grid's account serial number.
package useraccount

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

const (
	table       = "useraccounts"
	serialTable = "useraccounts_serial"
)

// Flags are the account flags.
type Flags uint32

const (
	FlagsNone         Flags = 0
	FlagsAllowPublish Flags = 1 << 0
	FlagsMature       Flags = 1 << 1
)

// Migrations declares the useraccounts and useraccounts_serial tables.
var Migrations = []migration.Element{
	migration.DeclareTable{Name: table},
	migration.AddColumn{Name: "ID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "ScopeID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "FirstName", Type: migration.String, Cardinality: 31, Default: ""},
	migration.AddColumn{Name: "LastName", Type: migration.String, Cardinality: 31, Default: ""},
	migration.AddColumn{Name: "Email", Type: migration.String, Cardinality: 255, Default: ""},
	migration.AddColumn{Name: "Created", Type: migration.Date, Default: simtypes.DateFromUnix(0)},
	migration.AddColumn{Name: "UserLevel", Type: migration.Int32, Default: int32(0)},
	migration.AddColumn{Name: "UserFlags", Type: migration.Int32, Default: int32(0)},
	migration.AddColumn{Name: "UserTitle", Type: migration.String, Cardinality: 64, Default: ""},
	migration.SetPrimaryKey{Fields: []string{"ID"}},
	migration.CreateNamedIndex{Name: "Email", Fields: []string{"Email"}},
	migration.CreateNamedIndex{Name: "Name", Fields: []string{"FirstName", "LastName"}, Unique: true},
	migration.CreateNamedIndex{Name: "FirstName", Fields: []string{"FirstName"}},
	migration.CreateNamedIndex{Name: "LastName", Fields: []string{"LastName"}},
	migration.DeclareRevision{Number: 2},
	migration.ChangeColumn{Name: "UserFlags", Type: migration.Uint32, Default: uint32(0)},
	migration.DeclareRevision{Number: 3},
	migration.AddColumn{Name: "IsEverLoggedIn", Type: migration.Bool, Default: false},
	migration.DeclareRevision{Number: 4},
	migration.ChangeColumn{Name: "UserFlags", Type: migration.Enum32, Default: FlagsNone},
	migration.AddColumn{Name: "LastLogout", Type: migration.Date, Nullable: true},
	migration.AddColumn{Name: "LastRegionID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "LastPosition", Type: migration.Vector3, Default: simtypes.Vector3{}},
	migration.AddColumn{Name: "LastLookAt", Type: migration.Vector3, Default: simtypes.Vector3{}},
	migration.AddColumn{Name: "LastGatekeeperURI", Type: migration.String, Cardinality: 255, Default: ""},
	migration.AddColumn{Name: "HomeRegionID", Type: migration.UUID, Default: uuid.Nil},
	migration.AddColumn{Name: "HomePosition", Type: migration.Vector3, Default: simtypes.Vector3{}},
	migration.AddColumn{Name: "HomeLookAt", Type: migration.Vector3, Default: simtypes.Vector3{}},
	migration.AddColumn{Name: "HomeGatekeeperURI", Type: migration.String, Cardinality: 255, Default: ""},
	migration.DeclareRevision{Number: 5},
	migration.DropColumn{Name: "ScopeID"},

	migration.DeclareTable{Name: serialTable},
	migration.AddColumn{Name: "SerialNumber", Type: migration.Uint64, Default: uint64(0)},
}

var columns = []migration.Column{
	{Name: "ID", Type: migration.UUID},
	{Name: "FirstName", Type: migration.String},
	{Name: "LastName", Type: migration.String},
	{Name: "Email", Type: migration.String},
	{Name: "Created", Type: migration.Date},
	{Name: "UserLevel", Type: migration.Int32},
	{Name: "UserFlags", Type: migration.Enum32},
	{Name: "UserTitle", Type: migration.String},
	{Name: "IsEverLoggedIn", Type: migration.Bool},
	{Name: "LastLogout", Type: migration.Date},
	{Name: "LastRegionID", Type: migration.UUID},
	{Name: "LastPosition", Type: migration.Vector3},
	{Name: "LastLookAt", Type: migration.Vector3},
	{Name: "LastGatekeeperURI", Type: migration.String},
	{Name: "HomeRegionID", Type: migration.UUID},
	{Name: "HomePosition", Type: migration.Vector3},
	{Name: "HomeLookAt", Type: migration.Vector3},
	{Name: "HomeGatekeeperURI", Type: migration.String},
}

var ErrNotFound = errors.New("user account not found")

// Location is a position inside a region.
type Location struct {
	RegionID      uuid.UUID
	Position      simtypes.Vector3
	LookAt        simtypes.Vector3
	GatekeeperURI string
}

type Account struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Created        simtypes.Date
	UserLevel      int32
	Flags          Flags
	Title          string
	IsEverLoggedIn bool
	// LastLogout is zero when the user never logged out.
	LastLogout simtypes.Date
	Last       Location
	Home       Location
}

type Service struct {
	db *sql.DB
	d  migration.Dialect
}

func New(db *sql.DB, d migration.Dialect) *Service {
	return &Service{db: db, d: d}
}

// Init makes sure the serial number row exists.
func (s *Service) Init(ctx context.Context) error {
	if _, err := s.SerialNumber(ctx); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return sqlrow.InsertInto(ctx, s.db, s.d, serialTable, map[string]any{"SerialNumber": uint64(1)})
}

func (s *Service) Add(ctx context.Context, a Account) error {
	return sqlrow.InsideTransaction(ctx, s.db, s.d.IsolationLevel(), func(tx *sql.Tx) error {
		if err := sqlrow.InsertInto(ctx, tx, s.d, table, s.values(a)); err != nil {
			return err
		}
		return s.bumpSerial(ctx, tx)
	})
}

// Update replaces every field of an existing account.
func (s *Service) Update(ctx context.Context, a Account) error {
	return sqlrow.InsideTransaction(ctx, s.db, s.d.IsolationLevel(), func(tx *sql.Tx) error {
		n, err := sqlrow.UpdateSet(ctx, tx, s.d, table, s.values(a), map[string]any{"ID": a.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return s.bumpSerial(ctx, tx)
	})
}

// SetLastLocation records where the user was last seen.
func (s *Service) SetLastLocation(ctx context.Context, id uuid.UUID, loc Location) error {
	n, err := sqlrow.UpdateSet(ctx, s.db, s.d, table, map[string]any{
		"LastRegionID":      loc.RegionID,
		"LastPosition":      loc.Position,
		"LastLookAt":        loc.LookAt,
		"LastGatekeeperURI": loc.GatekeeperURI,
	}, map[string]any{"ID": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) values(a Account) map[string]any {
	vals := map[string]any{
		"ID":                a.ID,
		"FirstName":         a.FirstName,
		"LastName":          a.LastName,
		"Email":             a.Email,
		"Created":           a.Created,
		"UserLevel":         a.UserLevel,
		"UserFlags":         a.Flags,
		"UserTitle":         a.Title,
		"IsEverLoggedIn":    a.IsEverLoggedIn,
		"LastRegionID":      a.Last.RegionID,
		"LastPosition":      a.Last.Position,
		"LastLookAt":        a.Last.LookAt,
		"LastGatekeeperURI": a.Last.GatekeeperURI,
		"HomeRegionID":      a.Home.RegionID,
		"HomePosition":      a.Home.Position,
		"HomeLookAt":        a.Home.LookAt,
		"HomeGatekeeperURI": a.Home.GatekeeperURI,
	}
	if !a.LastLogout.IsZero() {
		vals["LastLogout"] = a.LastLogout
	}
	return vals
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.getBy(ctx, "ID", id.String())
}

func (s *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return s.getBy(ctx, "Email", email)
}

func (s *Service) getBy(ctx context.Context, field string, value any) (Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		sqlrow.SelectList(s.d, columns...), s.d.QuoteIdentifier(table), s.d.QuoteIdentifier(field), s.d.Placeholder(1))
	var (
		a                    Account
		id, lastRegion, home sqlrow.UUID
		created, lastLogout  sqlrow.Date
		flags                int64
	)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&id, &a.FirstName, &a.LastName, &a.Email, &created, &a.UserLevel, &flags, &a.Title, &a.IsEverLoggedIn, &lastLogout,
		&lastRegion, &a.Last.Position.X, &a.Last.Position.Y, &a.Last.Position.Z,
		&a.Last.LookAt.X, &a.Last.LookAt.Y, &a.Last.LookAt.Z, &a.Last.GatekeeperURI,
		&home, &a.Home.Position.X, &a.Home.Position.Y, &a.Home.Position.Z,
		&a.Home.LookAt.X, &a.Home.LookAt.Y, &a.Home.LookAt.Z, &a.Home.GatekeeperURI,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("query %s: %w", table, err)
	}
	a.ID = id.UUID
	a.Created = created.Date
	a.LastLogout = lastLogout.Date
	a.Flags = Flags(flags)
	a.Last.RegionID = lastRegion.UUID
	a.Home.RegionID = home.UUID
	return a, nil
}

// Remove deletes an account and reports whether it existed.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		s.d.QuoteIdentifier(table), s.d.QuoteIdentifier("ID"), s.d.Placeholder(1))
	var removed bool
	err := sqlrow.InsideTransaction(ctx, s.db, s.d.IsolationLevel(), func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, id.String())
		if err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		removed = true
		return s.bumpSerial(ctx, tx)
	})
	return removed, err
}

// SerialNumber changes whenever an account is added, updated or removed.
func (s *Service) SerialNumber(ctx context.Context) (uint64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", s.d.QuoteIdentifier("SerialNumber"), s.d.QuoteIdentifier(serialTable))
	var serial int64
	err := s.db.QueryRowContext(ctx, query).Scan(&serial)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", serialTable, err)
	}
	return uint64(serial), nil
}

func (s *Service) bumpSerial(ctx context.Context, ex sqlrow.Execer) error {
	sn := s.d.QuoteIdentifier("SerialNumber")
	query := fmt.Sprintf("UPDATE %s SET %s = %s + 1", s.d.QuoteIdentifier(serialTable), sn, sn)
	if _, err := ex.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("update %s: %w", serialTable, err)
	}
	return nil
}
