package migration

import (
	"fmt"
	"slices"
)

// Element is one instruction of a table's migration. The set of elements
// is closed: DeclareTable, AddColumn, ChangeColumn, DropColumn,
// SetPrimaryKey, DropPrimaryKey, CreateNamedIndex, DropNamedIndex,
// DeclareRevision and RawStatement.
type Element interface {
	element()
}

// DeclareTable starts the migration of a table. Everything up to the first
// DeclareRevision makes up revision 1.
type DeclareTable struct {
	Name string
}

// AddColumn adds a column.
type AddColumn Column

// ChangeColumn replaces the definition of an existing column. When OldName
// is set and differs from Name the column is renamed.
type ChangeColumn struct {
	Name        string
	OldName     string
	Type        Type
	Cardinality int
	Nullable    bool
	Long        bool
	Fixed       bool
	Default     any
}

// DropColumn removes a column with all of its physical columns.
type DropColumn struct {
	Name string
}

// SetPrimaryKey sets the primary key over physical column names,
// replacing any previous one.
type SetPrimaryKey struct {
	Fields []string
}

type DropPrimaryKey struct{}

// CreateNamedIndex creates the index <table>_<Name>. Fields are physical
// column names; a composite column is indexed through its sub-columns.
type CreateNamedIndex struct {
	Name   string
	Fields []string
	Unique bool
}

type DropNamedIndex struct {
	Name string
}

// DeclareRevision closes the previous revision. Numbers start at 2 and
// increase by one.
type DeclareRevision struct {
	Number uint
}

// RawStatement is executed as-is when a table is upgraded through the
// revision containing it. It is not part of fresh table creation.
type RawStatement struct {
	SQL string
}

func (DeclareTable) element()     {}
func (AddColumn) element()        {}
func (ChangeColumn) element()     {}
func (DropColumn) element()       {}
func (SetPrimaryKey) element()    {}
func (DropPrimaryKey) element()   {}
func (CreateNamedIndex) element() {}
func (DropNamedIndex) element()   {}
func (DeclareRevision) element()  {}
func (RawStatement) element()     {}

// Column returns the definition the column has after the change.
func (c ChangeColumn) Column() Column {
	return Column{
		Name:        c.Name,
		Type:        c.Type,
		Cardinality: c.Cardinality,
		Nullable:    c.Nullable,
		Long:        c.Long,
		Fixed:       c.Fixed,
		Default:     c.Default,
	}
}

// From returns the name the column has before the change.
func (c ChangeColumn) From() string {
	if c.OldName == "" {
		return c.Name
	}
	return c.OldName
}

// IndexName returns the database name of a named index.
func IndexName(table, name string) string {
	return table + "_" + name
}

func (a AddColumn) Statements(d Dialect, table string) ([]string, error) {
	phys, err := Column(a).Physical(table)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, p := range phys {
		stmts = append(stmts, d.AddColumn(table, p)...)
	}
	return stmts, nil
}

// Statements renders the change of former into c. Physical columns whose
// suffix disappears are dropped, shared suffixes are renamed and altered,
// and new suffixes are added.
func (c ChangeColumn) Statements(d Dialect, table string, former Column) ([]string, error) {
	oldPhys, err := former.Physical(table)
	if err != nil {
		return nil, err
	}
	newPhys, err := c.Column().Physical(table)
	if err != nil {
		return nil, err
	}
	oldComps, newComps := Expand(former.Type), Expand(c.Type)
	oldBySuffix := make(map[string]PhysicalColumn, len(oldComps))
	for i, comp := range oldComps {
		oldBySuffix[comp.Suffix] = oldPhys[i]
	}
	newSuffixes := make(map[string]bool, len(newComps))
	for _, comp := range newComps {
		newSuffixes[comp.Suffix] = true
	}

	var stmts []string
	var dropped []PhysicalColumn
	for i, comp := range oldComps {
		if !newSuffixes[comp.Suffix] {
			dropped = append(dropped, oldPhys[i])
		}
	}
	if len(dropped) > 0 {
		stmts = append(stmts, d.DropColumns(table, dropped)...)
	}
	for i, comp := range newComps {
		from, ok := oldBySuffix[comp.Suffix]
		if !ok {
			continue
		}
		if from.Name != newPhys[i].Name {
			stmts = append(stmts, d.RenameColumn(table, from.Name, newPhys[i].Name)...)
			from.Name = newPhys[i].Name
		}
		stmts = append(stmts, d.AlterColumn(table, from, newPhys[i])...)
	}
	for i, comp := range newComps {
		if _, ok := oldBySuffix[comp.Suffix]; !ok {
			stmts = append(stmts, d.AddColumn(table, newPhys[i])...)
		}
	}
	return stmts, nil
}

// Rebuild renders the change of former into c as a rebuild of next, the
// table once the change is applied.
func (c ChangeColumn) Rebuild(rb TableRebuilder, next TableState, former Column) ([]string, error) {
	cols, err := next.Physical()
	if err != nil {
		return nil, err
	}
	newSuffixes := make(map[string]bool)
	for _, comp := range Expand(c.Type) {
		newSuffixes[comp.Suffix] = true
	}
	copied := make(map[string]string)
	for _, comp := range Expand(former.Type) {
		if newSuffixes[comp.Suffix] {
			copied[c.Name+comp.Suffix] = former.Name + comp.Suffix
		}
	}
	for _, col := range next.Columns {
		if col.Name == c.Name {
			continue
		}
		for _, n := range col.PhysicalNames() {
			copied[n] = n
		}
	}
	return rb.RebuildTable(next, cols, copied), nil
}

// Statements renders the removal of former, the definition the column has
// when it is dropped.
func (c DropColumn) Statements(d Dialect, table string, former Column) ([]string, error) {
	phys, err := former.Physical(table)
	if err != nil {
		return nil, err
	}
	return d.DropColumns(table, phys), nil
}

func (k SetPrimaryKey) Statements(d Dialect, table string) []string {
	return d.SetPrimaryKey(table, k.Fields)
}

func (DropPrimaryKey) Statements(d Dialect, table string) []string {
	return d.DropPrimaryKey(table)
}

func (k CreateNamedIndex) Statements(d Dialect, table string) []string {
	return d.CreateIndex(table, IndexName(table, k.Name), k.Fields, k.Unique)
}

func (k DropNamedIndex) Statements(d Dialect, table string) []string {
	return d.DropIndex(table, IndexName(table, k.Name))
}

func (s RawStatement) Statements() []string {
	return []string{s.SQL}
}

func describe(el Element) string {
	switch e := el.(type) {
	case DeclareTable:
		return fmt.Sprintf("DeclareTable %q", e.Name)
	case AddColumn:
		return fmt.Sprintf("AddColumn %q", e.Name)
	case ChangeColumn:
		if e.From() != e.Name {
			return fmt.Sprintf("ChangeColumn %q (from %q)", e.Name, e.From())
		}
		return fmt.Sprintf("ChangeColumn %q", e.Name)
	case DropColumn:
		return fmt.Sprintf("DropColumn %q", e.Name)
	case SetPrimaryKey:
		return fmt.Sprintf("SetPrimaryKey %v", e.Fields)
	case DropPrimaryKey:
		return "DropPrimaryKey"
	case CreateNamedIndex:
		return fmt.Sprintf("CreateNamedIndex %q", e.Name)
	case DropNamedIndex:
		return fmt.Sprintf("DropNamedIndex %q", e.Name)
	case DeclareRevision:
		return fmt.Sprintf("DeclareRevision %d", e.Number)
	case RawStatement:
		return "RawStatement"
	case nil:
		return "nil element"
	}
	return fmt.Sprintf("%T", el)
}

// Index is a named index in a reconstructed table.
type Index struct {
	Name   string
	Fields []string
	Unique bool
}

// TableState is the shape of a table at one revision.
type TableState struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Indexes    []Index
}

func (s *TableState) column(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (s *TableState) index(name string) (int, bool) {
	for i, idx := range s.Indexes {
		if idx.Name == name {
			return i, true
		}
	}
	return -1, false
}

// missingField returns the first of fields that is not a physical column
// of s.
func (s *TableState) missingField(fields []string) (string, bool) {
	have := make(map[string]bool)
	for _, c := range s.Columns {
		for _, n := range c.PhysicalNames() {
			have[n] = true
		}
	}
	for _, f := range fields {
		if !have[f] {
			return f, true
		}
	}
	return "", false
}

// staleKeyField reports a primary key or index field left without its
// column, naming the key that still uses it.
func (s *TableState) staleKeyField() error {
	if f, ok := s.missingField(s.PrimaryKey); ok {
		return fmt.Errorf("%w: %s is still part of the primary key", ErrUnknownKeyField, f)
	}
	for _, idx := range s.Indexes {
		if f, ok := s.missingField(idx.Fields); ok {
			return fmt.Errorf("%w: %s is still used by index %s", ErrUnknownKeyField, f, idx.Name)
		}
	}
	return nil
}

// Physical expands every column of s in declaration order.
func (s TableState) Physical() ([]PhysicalColumn, error) {
	var out []PhysicalColumn
	for _, c := range s.Columns {
		phys, err := c.Physical(s.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, phys...)
	}
	return out, nil
}

// renameFields rewrites key and index fields after former was renamed to
// next, suffix by suffix.
func (s *TableState) renameFields(former, next Column) {
	newSuffixes := make(map[string]bool)
	for _, comp := range Expand(next.Type) {
		newSuffixes[comp.Suffix] = true
	}
	for _, comp := range Expand(former.Type) {
		if !newSuffixes[comp.Suffix] {
			continue
		}
		from, to := former.Name+comp.Suffix, next.Name+comp.Suffix
		replaceField(s.PrimaryKey, from, to)
		for _, idx := range s.Indexes {
			replaceField(idx.Fields, from, to)
		}
	}
}

func replaceField(fields []string, from, to string) {
	for i, f := range fields {
		if f == from {
			fields[i] = to
		}
	}
}

func (s TableState) clone() TableState {
	out := TableState{
		Name:       s.Name,
		Columns:    slices.Clone(s.Columns),
		PrimaryKey: slices.Clone(s.PrimaryKey),
		Indexes:    make([]Index, len(s.Indexes)),
	}
	for i, idx := range s.Indexes {
		idx.Fields = slices.Clone(idx.Fields)
		out.Indexes[i] = idx
	}
	return out
}
