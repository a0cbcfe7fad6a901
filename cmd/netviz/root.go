package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "netviz",
	Short: "Session backend for the netviz reconnaissance dashboard",
	Long: `netviz drives a remote network-reconnaissance agent over a realtime
channel and derives the dashboard's views from the session event stream:
the chat transcript, scan progress, the narrated analysis feed and the
target intelligence knowledge base.`,
	Version: version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
