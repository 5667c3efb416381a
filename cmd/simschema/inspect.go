package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Limetric/simschema/internal/migration"
	"github.com/Limetric/simschema/internal/tables"
)

var revisionCmd = &cobra.Command{
	Use:   "revision <table>...",
	Short: "Print the stored revision of tables",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		be, db, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, table := range args {
			rev, err := migration.GetTableRevision(ctx, db, be.Dialect(), table)
			if err != nil {
				return fmt.Errorf("read revision of %s: %w", table, err)
			}
			fmt.Fprintf(tw, "%s\t%d\n", table, rev)
		}
		return tw.Flush()
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the migration streams and the tables they declare",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeTables(cmd.OutOrStdout(), tables.All())
	},
}

// writeTables prints one line per declared table with its latest revision.
func writeTables(w io.Writer, streams []tables.Stream) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tTABLE\tREVISION")
	for _, s := range streams {
		var table string
		var rev uint
		flush := func() {
			if table != "" {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Name, table, rev)
			}
		}
		for _, el := range s.Elements {
			switch e := el.(type) {
			case migration.DeclareTable:
				flush()
				table, rev = e.Name, 1
			case migration.DeclareRevision:
				rev = e.Number
			}
		}
		flush()
	}
	return tw.Flush()
}
