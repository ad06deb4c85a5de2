package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dateja/sqlitedb/internal/usecase"
)

func newIngestCmd() *cobra.Command {
	var (
		projectID string
		userID    string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a csv, xls, xlsx or sqlite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.dataset.Upload(a.context(cmd.Context()), usecase.UploadInput{
				Reader:    f,
				FileName:  filepath.Base(args[0]),
				ProjectID: projectID,
				UserID:    userID,
			})
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), res)
			case "text":
				_, err := fmt.Fprintln(cmd.OutOrStdout(), res.ID)
				return err
			default:
				return fmt.Errorf("invalid format: %s (valid values: text, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project the upload belongs to")
	cmd.Flags().StringVar(&userID, "user", "", "User the upload belongs to")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}
