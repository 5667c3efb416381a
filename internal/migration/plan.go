package migration

import (
	"fmt"
	"slices"
)

// Step is the work that brings a table to Revision.
type Step struct {
	Revision   uint
	Statements []string
	// State is the table shape once Revision is reached.
	State TableState
}

// TablePlan holds the revision steps of one table. Steps[i] reaches
// revision i+1.
type TablePlan struct {
	Table string
	Steps []Step
}

// MaxRevision returns the last revision declared for the table.
func (p TablePlan) MaxRevision() uint {
	return uint(len(p.Steps))
}

// Create renders the fresh creation of the table at rev: one CREATE TABLE
// from the reconstructed state, its named indexes and the revision marker.
func (p TablePlan) Create(d Dialect, rev uint) ([]string, error) {
	if rev < 1 || rev > p.MaxRevision() {
		return nil, fmt.Errorf("table %s has no revision %d", p.Table, rev)
	}
	state := p.Steps[rev-1].State
	cols, err := state.Physical()
	if err != nil {
		return nil, err
	}
	stmts := d.CreateTable(p.Table, cols, state.PrimaryKey)
	for _, idx := range state.Indexes {
		stmts = append(stmts, d.CreateIndex(p.Table, IndexName(p.Table, idx.Name), idx.Fields, idx.Unique)...)
	}
	stmts = append(stmts, d.SetTableRevision(p.Table, rev, true)...)
	return stmts, nil
}

// Upgrade renders the statements that take the table from revision from
// to revision to, each step followed by its revision marker.
func (p TablePlan) Upgrade(d Dialect, from, to uint) []string {
	var stmts []string
	for r := from + 1; r <= to && r <= p.MaxRevision(); r++ {
		stmts = append(stmts, p.Steps[r-1].Statements...)
		stmts = append(stmts, d.SetTableRevision(p.Table, r, false)...)
	}
	return stmts
}

type trackerState int

const (
	noTableSeen trackerState = iota
	awaitingFirstRevision
	atRevision
)

// tracker replays an element stream, validating it and collecting the
// statements of every revision step.
type tracker struct {
	d        Dialect
	state    trackerState
	revision uint
	table    TableState
	pending  []string
	steps    []Step
	plans    []TablePlan
	seen     map[string]bool
}

// Plan validates elements and renders the revision steps of every table
// they declare. A stream may declare several tables; each DeclareTable
// closes the previous one. No definition error survives Plan.
func Plan(d Dialect, elements []Element) ([]TablePlan, error) {
	if len(elements) == 0 {
		return nil, ErrEmptyMigration
	}
	t := &tracker{d: d, seen: make(map[string]bool)}
	for _, el := range elements {
		if err := t.apply(el); err != nil {
			return nil, err
		}
	}
	t.closeTable()
	return t.plans, nil
}

func (t *tracker) fail(el Element, err error) error {
	return &DefinitionError{Table: t.table.Name, Revision: t.revision, Element: el, Err: err}
}

func (t *tracker) emit(stmts ...string) {
	t.pending = append(t.pending, stmts...)
}

func (t *tracker) closeStep() {
	t.steps = append(t.steps, Step{Revision: t.revision, Statements: t.pending, State: t.table.clone()})
	t.pending = nil
}

func (t *tracker) closeTable() {
	if t.state == noTableSeen {
		return
	}
	t.closeStep()
	t.plans = append(t.plans, TablePlan{Table: t.table.Name, Steps: t.steps})
	t.steps = nil
}

func (t *tracker) apply(el Element) error {
	if _, ok := el.(DeclareTable); !ok && t.state == noTableSeen {
		return t.fail(el, ErrFirstNotTable)
	}

	switch e := el.(type) {
	case DeclareTable:
		if e.Name == "" {
			return t.fail(el, ErrEmptyName)
		}
		if t.seen[e.Name] {
			return t.fail(el, ErrDuplicateTable)
		}
		t.closeTable()
		t.seen[e.Name] = true
		t.table = TableState{Name: e.Name}
		t.revision = 1
		t.state = awaitingFirstRevision

	case DeclareRevision:
		if e.Number != t.revision+1 {
			return t.fail(el, fmt.Errorf("%w: expected %d, got %d", ErrRevisionSequence, t.revision+1, e.Number))
		}
		t.closeStep()
		t.revision = e.Number
		t.state = atRevision

	case AddColumn:
		if e.Name == "" {
			return t.fail(el, ErrEmptyName)
		}
		if _, ok := t.table.column(e.Name); ok {
			return t.fail(el, ErrDuplicateColumn)
		}
		stmts, err := e.Statements(t.d, t.table.Name)
		if err != nil {
			return t.fail(el, err)
		}
		t.table.Columns = append(t.table.Columns, Column(e))
		t.emit(stmts...)

	case ChangeColumn:
		if e.Name == "" {
			return t.fail(el, ErrEmptyName)
		}
		i, ok := t.table.column(e.From())
		if !ok {
			return t.fail(el, ErrUnknownColumn)
		}
		if e.Name != e.From() {
			if _, dup := t.table.column(e.Name); dup {
				return t.fail(el, ErrDuplicateColumn)
			}
		}
		former := t.table.Columns[i]
		stmts, err := e.Statements(t.d, t.table.Name, former)
		if err != nil {
			return t.fail(el, err)
		}
		t.table.Columns[i] = e.Column()
		if e.Name != former.Name {
			t.table.renameFields(former, e.Column())
		}
		if err := t.table.staleKeyField(); err != nil {
			return t.fail(el, err)
		}
		if rb, ok := t.d.(TableRebuilder); ok {
			if stmts, err = e.Rebuild(rb, t.table, former); err != nil {
				return t.fail(el, err)
			}
		}
		t.emit(stmts...)

	case DropColumn:
		i, ok := t.table.column(e.Name)
		if !ok {
			return t.fail(el, ErrUnknownColumn)
		}
		stmts, err := e.Statements(t.d, t.table.Name, t.table.Columns[i])
		if err != nil {
			return t.fail(el, err)
		}
		t.table.Columns = slices.Delete(t.table.Columns, i, i+1)
		if err := t.table.staleKeyField(); err != nil {
			return t.fail(el, err)
		}
		t.emit(stmts...)

	case SetPrimaryKey:
		if len(e.Fields) == 0 {
			return t.fail(el, ErrEmptyKey)
		}
		if f, ok := t.table.missingField(e.Fields); ok {
			return t.fail(el, fmt.Errorf("%w: %s", ErrUnknownKeyField, f))
		}
		if t.table.PrimaryKey != nil {
			t.emit(t.d.DropPrimaryKey(t.table.Name)...)
		}
		t.table.PrimaryKey = slices.Clone(e.Fields)
		t.emit(e.Statements(t.d, t.table.Name)...)

	case DropPrimaryKey:
		if t.table.PrimaryKey == nil {
			return t.fail(el, ErrNoPrimaryKey)
		}
		t.table.PrimaryKey = nil
		t.emit(e.Statements(t.d, t.table.Name)...)

	case CreateNamedIndex:
		if e.Name == "" {
			return t.fail(el, ErrEmptyName)
		}
		if len(e.Fields) == 0 {
			return t.fail(el, ErrEmptyKey)
		}
		if _, ok := t.table.index(e.Name); ok {
			return t.fail(el, ErrDuplicateIndex)
		}
		if f, ok := t.table.missingField(e.Fields); ok {
			return t.fail(el, fmt.Errorf("%w: %s", ErrUnknownKeyField, f))
		}
		t.table.Indexes = append(t.table.Indexes, Index{Name: e.Name, Fields: slices.Clone(e.Fields), Unique: e.Unique})
		t.emit(e.Statements(t.d, t.table.Name)...)

	case DropNamedIndex:
		i, ok := t.table.index(e.Name)
		if !ok {
			return t.fail(el, ErrUnknownIndex)
		}
		t.table.Indexes = slices.Delete(t.table.Indexes, i, i+1)
		t.emit(e.Statements(t.d, t.table.Name)...)

	case RawStatement:
		if e.SQL == "" {
			return t.fail(el, fmt.Errorf("%w: empty statement", ErrUnexpectedElement))
		}
		t.emit(e.Statements()...)

	default:
		return t.fail(el, ErrUnexpectedElement)
	}
	return nil
}
