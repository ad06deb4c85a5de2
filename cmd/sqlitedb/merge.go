package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "merge <project> [id...]",
		Short: "Rebuild a project database from the cleaned tables of the given ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.dataset.Merge(a.context(cmd.Context()), args[0], args[1:])
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), report)
			case "table":
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Table", "Source", "Source Table", "Rows"})
				for _, tbl := range report.Tables {
					t.AppendRow(table.Row{tbl.Name, tbl.Source, tbl.SourceTable, tbl.Rows})
				}
				t.Render()
				for _, id := range report.Skipped {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: no such file\n", id)
				}
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
