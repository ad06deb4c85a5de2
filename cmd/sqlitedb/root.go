package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "sqlitedb",
	Short:        "sqlitedb - tabular uploads as sqlite databases",
	Long:         "sqlitedb turns csv and spreadsheet uploads into sqlite files, describes and queries them, and merges cleaned tables into project databases.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTablesCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newMergeCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newExportCmd())
}
