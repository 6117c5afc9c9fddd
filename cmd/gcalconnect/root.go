package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for gcalconnect
var rootCmd = &cobra.Command{
	Use:   "gcalconnect",
	Short: "Connects application users to Google Calendar",
	Long: `gcalconnect runs the HTTP API that lets application users connect their
Google account and manage calendar events, plus admin commands for the
database schema and local users.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the CLI application
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newUserCmd())
}
