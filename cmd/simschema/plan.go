package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Limetric/simschema/internal/backend"
	"github.com/Limetric/simschema/internal/migration"
	"github.com/Limetric/simschema/internal/tables"
)

var planCmd = &cobra.Command{
	Use:   "plan [stream...]",
	Short: "Print the statements a migration would run, without connecting",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("backend")
		fromFlag, _ := cmd.Flags().GetStringSlice("from")
		from, err := parseFrom(fromFlag)
		if err != nil {
			return err
		}
		be, err := backend.Lookup(name)
		if err != nil {
			return err
		}
		streams, err := tables.Select(args)
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), be.Dialect(), streams, from)
	},
}

func init() {
	planCmd.Flags().String("backend", "mssql", "backend whose SQL is printed")
	planCmd.Flags().StringSlice("from", nil, "revision the tables are at, as table=N (repeatable) or N for every other table; 0 prints the creation")
}

// startRevisions holds the revision each table is planned from.
type startRevisions struct {
	def     uint
	byTable map[string]uint
}

func (s startRevisions) of(table string) uint {
	if rev, ok := s.byTable[table]; ok {
		return rev
	}
	return s.def
}

// parseFrom parses --from values of the form "table=N" or "N".
func parseFrom(values []string) (startRevisions, error) {
	s := startRevisions{byTable: map[string]uint{}}
	for _, v := range values {
		table, num, named := strings.Cut(v, "=")
		if !named {
			num = table
		}
		rev, err := strconv.ParseUint(strings.TrimSpace(num), 10, 0)
		if err != nil {
			return startRevisions{}, fmt.Errorf("--from %q: revision must be a number", v)
		}
		if !named {
			s.def = uint(rev)
			continue
		}
		table = strings.TrimSpace(table)
		if table == "" {
			return startRevisions{}, fmt.Errorf("--from %q: table name is empty", v)
		}
		s.byTable[table] = uint(rev)
	}
	return s, nil
}

// writePlan prints the statements that take every table of streams from
// its start revision to its latest revision.
func writePlan(w io.Writer, d migration.Dialect, streams []tables.Stream, start startRevisions) error {
	for _, s := range streams {
		plans, err := migration.Plan(d, s.Elements)
		if err != nil {
			return fmt.Errorf("plan %s: %w", s.Name, err)
		}
		for _, p := range plans {
			latest := p.MaxRevision()
			from := start.of(p.Table)
			var stmts []string
			switch {
			case from == 0:
				stmts, err = p.Create(d, latest)
				if err != nil {
					return err
				}
			case from > latest:
				return fmt.Errorf("table %s: %w: from %d, declared %d", p.Table, migration.ErrRevisionAhead, from, latest)
			default:
				stmts = p.Upgrade(d, from, latest)
			}

			fmt.Fprintf(w, "-- %s: revision %d -> %d\n", p.Table, from, latest)
			for _, stmt := range stmts {
				fmt.Fprintf(w, "%s;\n", stmt)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
