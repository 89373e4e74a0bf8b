package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	httpserver "github.com/fyrsmithlabs/dataverse-mcp/internal/http"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/solutionctx"
)

func newServeCmd(opts *options) *cobra.Command {
	var useHTTP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio or streamable HTTP",
		Long: `Serve the Dataverse tools over MCP.

stdio is the default transport. With --http (or server.transport: http) the
server listens on server.http_host:server.http_port and exposes /mcp,
/health and /metrics.

Examples:
  # stdio, for MCP clients that spawn the server
  dataverse-mcp serve

  # streamable HTTP
  DVMCP_SERVER_HTTP_PORT=8080 dataverse-mcp serve --http`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, useHTTP)
		},
	}
	cmd.Flags().BoolVar(&useHTTP, "http", false, "serve streamable HTTP instead of stdio")
	return cmd
}

// runServe blocks until SIGINT/SIGTERM or the client disconnects.
func runServe(cmd *cobra.Command, opts *options, useHTTP bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return err
	}
	if useHTTP {
		cfg.Server.Transport = config.TransportHTTP
	}

	deps, err := initDependencies(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	logger := deps.logger
	server, err := deps.newMCPServer(deps.client)
	if err != nil {
		return err
	}

	if cfg.Context.Watch {
		watcher, err := solutionctx.NewWatcher(deps.store, deps.files, logger.Named("watcher").Underlying())
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	logger.Info(ctx, "starting dataverse-mcp",
		zap.String("version", version),
		zap.String("transport", cfg.Server.Transport),
		zap.String("environment", cfg.Dataverse.URL),
		zap.String("context_file", deps.store.Key()),
		zap.Bool("telemetry", deps.telemetry.IsEnabled()),
		zap.Int("tools", server.Registry().Count()))

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		return serveHTTP(ctx, deps, server.MCPServer())
	default:
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
}

func serveHTTP(ctx context.Context, deps *dependencies, mcpServer *sdkmcp.Server) error {
	cfg := deps.cfg.Server
	srv, err := httpserver.NewServer(mcpServer, deps.logger.Named("http").Underlying(), &httpserver.Config{
		Host:            cfg.HTTPHost,
		Port:            cfg.HTTPPort,
		Version:         version,
		TelemetryHealth: deps.telemetry.Health,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	deps.logger.Info(ctx, "http transport configured",
		zap.String("mcp_endpoint", fmt.Sprintf("http://%s/mcp", cfg.HTTPAddr())),
		zap.String("health_endpoint", "/health"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Run(ctx, cfg.ShutdownTimeout.Duration())
}
