package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

func newTablesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tables <id>",
		Short: "List the tables of a file or project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tables, err := a.dataset.Tables(a.context(cmd.Context()), args[0])
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), tables)
			case "table":
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Name", "Definition"})

				sqlWidth := getTerminalWidth() - 30
				if sqlWidth < 20 {
					sqlWidth = 20
				}
				for _, tbl := range tables {
					t.AppendRow(table.Row{tbl.Name, runewidth.Truncate(tbl.SQL, sqlWidth, "...")})
				}
				t.Render()
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
