package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/solutionctx"
)

func newContextCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage the active solution context",
		Long: `Show, set or clear the solution context shared with running servers.

The context is stored in context.file_name (default .mcp-dataverse) inside
context.dir. A server started with context.watch: true picks up changes
made here without a restart.

Examples:
  dataverse-mcp context show
  dataverse-mcp context set contoso_core
  dataverse-mcp context clear`,
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output the context as JSON")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active solution context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, false, func(ctx context.Context, store *solutionctx.Store) error {
				sc, err := store.Get(ctx)
				if err != nil {
					return err
				}
				return printContext(cmd.OutOrStdout(), sc, asJSON)
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <solution-unique-name>",
		Short: "Resolve a solution in Dataverse and make it the active context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, true, func(ctx context.Context, store *solutionctx.Store) error {
				sc, err := store.Set(ctx, args[0])
				if err != nil {
					return fmt.Errorf("set solution context: %w", err)
				}
				return printContext(cmd.OutOrStdout(), sc, asJSON)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the active solution context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, false, func(ctx context.Context, store *solutionctx.Store) error {
				prev, err := store.Clear(ctx)
				if err != nil {
					return err
				}
				if prev == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No solution context was set.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared solution context '%s'.\n", prev.SolutionUniqueName)
				return nil
			})
		},
	}

	cmd.AddCommand(showCmd, setCmd, clearCmd)
	return cmd
}

// withStore loads configuration and runs fn against the context store.
// Only remote commands need Dataverse credentials.
func withStore(cmd *cobra.Command, opts *options, remote bool, fn func(context.Context, *solutionctx.Store) error) error {
	ctx := cmd.Context()

	load := config.LoadLocal
	if remote {
		load = config.LoadWithFile
	}
	cfg, err := load(opts.configPath)
	if err != nil {
		return err
	}

	deps, err := initDependencies(ctx, cfg, remote)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	return fn(ctx, deps.store)
}

func printContext(w io.Writer, sc *solutionctx.SolutionContext, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	}
	if sc == nil {
		_, err := fmt.Fprintln(w, "No solution context is set.")
		return err
	}
	_, err := fmt.Fprintf(w, "Solution:  %s (%s)\nPublisher: %s (%s)\nPrefix:    %s\nUpdated:   %s\n",
		sc.SolutionUniqueName, sc.SolutionDisplayName,
		sc.PublisherDisplayName, sc.PublisherUniqueName,
		sc.CustomizationPrefix,
		sc.LastUpdated.UTC().Format(time.RFC3339))
	return err
}
