// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if tool := ToolFromContext(ctx); tool != "" {
		fields = append(fields, zap.String("tool", tool))
	}

	if solution := SolutionFromContext(ctx); solution != "" {
		fields = append(fields, zap.String("solution", solution))
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

type toolCtxKey struct{}
type solutionCtxKey struct{}
type requestCtxKey struct{}

const maxIDLen = 128

// Tool names and Dataverse unique names share this alphabet.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// ToolFromContext returns the MCP tool name handling the request.
func ToolFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(toolCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithTool adds the MCP tool name to context.
// Panics if name is empty or contains invalid characters.
func WithTool(ctx context.Context, name string) context.Context {
	if err := validateID(name, "tool"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, toolCtxKey{}, name)
}

// SolutionFromContext returns the active solution unique name.
func SolutionFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(solutionCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithSolution adds the active solution unique name to context.
// Unlike WithTool it never panics: names come from a user-editable file,
// so invalid values are dropped.
func WithSolution(ctx context.Context, uniqueName string) context.Context {
	if validateID(uniqueName, "solution") != nil {
		return ctx
	}
	return context.WithValue(ctx, solutionCtxKey{}, uniqueName)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context.
// Panics if requestID is empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}
