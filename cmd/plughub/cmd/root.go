// Package cmd provides the CLI commands for the plughub application.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/plughub/internal/version"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "plughub",
	Short:   "WASM plugin host server and utilities",
	Long:    `A TCP server that discovers, validates and hot-reloads WASM plugins, with utilities for inspecting and scaffolding them.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
