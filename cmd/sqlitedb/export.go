package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dateja/sqlitedb/internal/filesystem"
)

func newExportCmd() *cobra.Command {
	var (
		tableName string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a table as CSV (default data_cleaned)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := a.context(cmd.Context())

			if out == "" || out == "-" {
				return a.dataset.ExportCSV(ctx, args[0], tableName, cmd.OutOrStdout())
			}

			//nolint:gosec // G304: output path is provided by the user
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := a.dataset.ExportCSV(ctx, args[0], tableName, f); err != nil {
				_ = f.Close()
				_ = filesystem.DeleteFile(out)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			return err
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "", "Table to export (default data_cleaned)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")

	return cmd
}
