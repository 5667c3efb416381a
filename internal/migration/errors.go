package migration

import (
	"errors"
	"fmt"
)

// Definition errors. They are reported before any statement executes.
var (
	ErrEmptyMigration    = errors.New("migration has no elements")
	ErrFirstNotTable     = errors.New("first migration element must declare a table")
	ErrUnexpectedElement = errors.New("unexpected migration element")
	ErrEmptyName         = errors.New("name is empty")
	ErrDuplicateTable    = errors.New("table declared twice")
	ErrRevisionSequence  = errors.New("invalid table revision")
	ErrUnknownColumn     = errors.New("column was never added")
	ErrDuplicateColumn   = errors.New("column was added twice")
	ErrUnsupportedType   = errors.New("column type is not supported")
	ErrDefaultMismatch   = errors.New("default value does not match column type")
	ErrUnsupportedValue  = errors.New("value type is not supported")
	ErrEmptyKey          = errors.New("key has no fields")
	ErrNoPrimaryKey      = errors.New("table has no primary key")
	ErrUnknownIndex      = errors.New("named index does not exist")
	ErrDuplicateIndex    = errors.New("named index already exists")
	ErrUnknownKeyField   = errors.New("key field is not a column of the table")
)

// ErrRevisionAhead is returned when a table's stored revision is higher
// than the last revision its migration declares.
var ErrRevisionAhead = errors.New("table revision is ahead of its migration")

// DefinitionError locates a definition error in an element stream.
type DefinitionError struct {
	Table    string
	Revision uint
	Element  Element
	Err      error
}

func (e *DefinitionError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", describe(e.Element), e.Err)
	}
	return fmt.Sprintf("table %s revision %d: %s: %v", e.Table, e.Revision, describe(e.Element), e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }
