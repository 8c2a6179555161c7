/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the campus event manager. Builds the cobra
  command tree; the actual work lives in serve.go and token.go.

COMMANDS:
  serve   Start the HTTP API (default backend: SQLite)
  token   Issue a bearer token for a user (local development, scripts)

GLOBAL FLAGS:
  --config   Path to a YAML config file (optional)

ENVIRONMENT:
  CAMPUS_PORT, CAMPUS_DB, CAMPUS_JWT_SECRET, CAMPUS_LOG_LEVEL,
  CAMPUS_AUDIT_INTERVAL, CAMPUS_CORS_ORIGINS. A .env file in the working
  directory is loaded first.

EXAMPLES:
  # Run with file database
  CAMPUS_JWT_SECRET=dev ./server serve --db ./data/campus.db

  # Run with in-memory stores
  CAMPUS_JWT_SECRET=dev ./server serve --db memory

  # Run against PostgreSQL
  ./server serve --config campus.yaml --db postgres://campus@localhost/campus

  # Admin token for the console
  CAMPUS_JWT_SECRET=dev ./server token --username dean --email dean@campus.edu --role admin

SEE ALSO:
  - config/config.go: configuration layering
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "campus-server",
		Short: "Campus event manager",
		Long:  "Scheduling, registration and analytics API for campus events.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
