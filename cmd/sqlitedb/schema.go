package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var (
		role    string
		project string
		ids     []string
	)

	cmd := &cobra.Command{
		Use:   "schema [id]",
		Short: "Print the schema summary of a file, or of a project rebuilt from --ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(ids) == 0 {
				return fmt.Errorf("either an id or --ids is required")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := a.context(cmd.Context())

			var text string
			if len(args) == 1 {
				summary, err := a.dataset.Describe(ctx, args[0], role)
				if err != nil {
					return err
				}
				text = summary.String()
			} else {
				summary, report, err := a.dataset.DescribeProject(ctx, project, ids)
				if err != nil {
					return err
				}
				for _, id := range report.Skipped {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: no such file\n", id)
				}
				text = summary.String()
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Table name substring to describe (default data_cleaned)")
	cmd.Flags().StringVar(&project, "project", "", "Project to rebuild when describing --ids (default test)")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "File ids to merge and describe, in order")

	return cmd
}
