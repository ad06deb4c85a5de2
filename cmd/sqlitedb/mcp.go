package main

import (
	"github.com/spf13/cobra"

	"github.com/dateja/sqlitedb/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return mcp.NewServer(a.dataset, version).Run(a.context(cmd.Context()))
		},
	}

	return cmd
}
