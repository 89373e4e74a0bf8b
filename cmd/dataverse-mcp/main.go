// Dataverse-mcp is an MCP server for managing Dataverse publishers and
// solutions.
//
// Usage:
//
//	# Serve MCP over stdio (default)
//	dataverse-mcp
//
//	# Serve streamable HTTP on server.http_host:server.http_port
//	dataverse-mcp serve --http
//
//	# Inspect or change the active solution
//	dataverse-mcp context show
//	dataverse-mcp context set contoso_core
//	dataverse-mcp context clear
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds flags shared by every command.
type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "dataverse-mcp",
		Short: "MCP server for Dataverse publishers and solutions",
		Long: `dataverse-mcp exposes Dataverse publisher and solution management as
Model Context Protocol tools. Without a subcommand it serves MCP over stdio.

Configuration is read from ~/.config/dataverse-mcp/config.yaml and the
environment (DATAVERSE_URL, DATAVERSE_CLIENT_ID, DATAVERSE_CLIENT_SECRET,
DATAVERSE_TENANT_ID or DATAVERSE_ACCESS_TOKEN).`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, false)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/dataverse-mcp/config.yaml)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newContextCmd(opts))
	root.AddCommand(newToolsCmd(opts))

	return root
}
