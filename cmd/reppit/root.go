package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Reppit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reppit",
		Short: "Reppit - a GraphQL authentication backend",
		Long: `Reppit serves a GraphQL API for user registration, login,
session management, and password recovery, backed by PostgreSQL and Redis.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
