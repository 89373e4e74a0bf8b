package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/mcp"
)

func newToolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tools [query]",
		Short: "List the MCP tools this server registers",
		Long: `List registered MCP tools grouped by category. With a query, tools are
ranked by how well their name, description or keywords match.

Examples:
  dataverse-mcp tools
  dataverse-mcp tools solution`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadLocal(opts.configPath)
			if err != nil {
				return err
			}
			deps, err := initDependencies(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer deps.Close(ctx)

			server, err := deps.newMCPServer(nil)
			if err != nil {
				return err
			}

			var tools []*mcp.ToolMetadata
			if len(args) == 1 {
				for _, r := range server.Registry().Search(args[0]) {
					tools = append(tools, r.Tool)
				}
				if len(tools) == 0 {
					return fmt.Errorf("no tools match %q", args[0])
				}
			} else {
				tools = server.Registry().List()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tACCESS\tDESCRIPTION")
			for _, t := range tools {
				access := "write"
				if t.ReadOnly {
					access = "read"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Category, access, t.Description)
			}
			return w.Flush()
		},
	}
}
