// Package logging provides structured logging for dataverse-mcp.
//
// It wraps Zap with:
//   - a custom Trace level (-2, below Debug) for wire-level detail
//   - stderr output, since stdout carries the MCP stdio protocol
//   - an optional OpenTelemetry log bridge
//   - context field injection (trace_id, tool name, active solution)
//   - key and pattern based redaction of credentials
//   - per-level sampling; Error and above are never sampled
//
// Typical use:
//
//	logger, err := logging.NewLogger(logging.FromSettings(cfg.Logging), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithTool(ctx, "create_dataverse_solution")
//	logger.Info(ctx, "tool completed", zap.Duration("duration", d))
package logging
