package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dateja/sqlitedb/internal/usecase"
)

func newInfoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show upload metadata and the shape of the raw table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.dataset.Info(a.context(cmd.Context()), args[0])
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), info)
			case "table":
				outputInfoTable(cmd, info)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputInfoTable(cmd *cobra.Command, info *usecase.Info) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})

	created := ""
	if !info.CreatedAt.IsZero() {
		created = info.CreatedAt.Format(time.DateTime)
	}

	t.AppendRows([]table.Row{
		{"File", info.FileID},
		{"Name", info.FileName},
		{"Kind", info.Kind},
		{"Project", info.ProjectID},
		{"User", info.UserID},
		{"Size", info.Size},
		{"Created", created},
		{"Rows", info.RowCount},
		{"Columns", wrapString(strings.Join(info.Columns, ", "), getTerminalWidth()-20)},
	})
	t.Render()
}
