package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/dataverse"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/logging"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/solutionctx"
)

// request is implemented by every tool input.
type request interface {
	validate() error
}

// toolFunc runs a validated request and returns the success text.
type toolFunc[In request] func(ctx context.Context, in In) (string, error)

type toolDef struct {
	meta        *ToolMetadata
	title       string
	failure     string // "creating publisher" in "Error creating publisher: ..."
	annotations *mcp.ToolAnnotations
}

// addTool registers fn with the SDK and the registry. Input schemas are
// inferred from In.
func addTool[In request](s *Server, def toolDef, fn toolFunc[In]) {
	s.toolRegistry.Register(def.meta)

	annotations := def.annotations
	annotations.Title = def.title

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        def.meta.Name,
		Description: def.meta.Description,
		Annotations: annotations,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		return runTool(ctx, s, def, in, fn), nil, nil
	})
}

func runTool[In request](ctx context.Context, s *Server, def toolDef, in In, fn toolFunc[In]) *mcp.CallToolResult {
	name := def.meta.Name
	start := time.Now()

	ctx = logging.WithTool(ctx, name)
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	if sc, err := s.contexts.Get(ctx); err == nil && sc != nil {
		ctx = logging.WithSolution(ctx, sc.SolutionUniqueName)
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "mcp.tool."+name)
	span.SetAttributes(attribute.String("mcp.tool", name))
	defer span.End()

	s.logger.Trace(ctx, "tool input", zap.Any("input", in))

	s.metrics.IncrementActive(ctx, name)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), toolErr)
	}()

	var text string
	if toolErr = in.validate(); toolErr == nil {
		text, toolErr = fn(ctx, in)
	}

	if toolErr != nil {
		span.RecordError(toolErr)
		span.SetStatus(codes.Error, toolErr.Error())
		s.logger.Warn(ctx, "tool call failed",
			zap.String("reason", categorizeError(toolErr)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(toolErr))
		return s.result(fmt.Sprintf("Error %s: %s", def.failure, toolErr.Error()), true)
	}

	s.logger.Info(ctx, "tool call completed", zap.Duration("duration", time.Since(start)))
	return s.result(text, false)
}

// result wraps scrubbed text in a tool result.
func (s *Server) result(text string, isError bool) *mcp.CallToolResult {
	scrubbed := s.scrubber.Scrub(text)
	if scrubbed.HasFindings() {
		s.logger.Warn(context.Background(), "redacted secrets from tool output",
			zap.Strings("rules", scrubbed.RuleIDs()))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: scrubbed.Scrubbed},
		},
		IsError: isError,
	}
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	s.registerPublisherTools()
	s.registerSolutionTools()
	s.registerContextTools()
	return nil
}

func ptr[T any](v T) *T { return &v }

func remoteReadAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{ReadOnlyHint: true, OpenWorldHint: ptr(true)}
}

func remoteCreateAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{DestructiveHint: ptr(false), OpenWorldHint: ptr(true)}
}

// ===== PUBLISHER TOOLS =====

func (s *Server) registerPublisherTools() {
	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "create_dataverse_publisher",
			Description: "Create a Dataverse publisher that owns solutions and defines the customization prefix",
			Category:    CategoryPublisher,
			Remote:      true,
			Keywords:    []string{"prefix", "create"},
		},
		title:       "Create publisher",
		failure:     "creating publisher",
		annotations: remoteCreateAnnotations(),
	}, s.createPublisher)

	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "get_dataverse_publisher",
			Description: "Get a Dataverse publisher by unique name",
			Category:    CategoryPublisher,
			ReadOnly:    true,
			Remote:      true,
		},
		title:       "Get publisher",
		failure:     "retrieving publisher",
		annotations: remoteReadAnnotations(),
	}, s.getPublisher)

	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "list_dataverse_publishers",
			Description: "List Dataverse publishers, custom publishers only by default",
			Category:    CategoryPublisher,
			ReadOnly:    true,
			Remote:      true,
		},
		title:       "List publishers",
		failure:     "listing publishers",
		annotations: remoteReadAnnotations(),
	}, s.listPublishers)
}

func (s *Server) createPublisher(ctx context.Context, in createPublisherInput) (string, error) {
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Publisher for %s", in.FriendlyName)
	}

	created, err := s.dataverse.CreatePublisher(ctx, dataverse.NewPublisher{
		FriendlyName:                   in.FriendlyName,
		UniqueName:                     in.UniqueName,
		Description:                    description,
		CustomizationPrefix:            in.CustomizationPrefix,
		CustomizationOptionValuePrefix: in.CustomizationOptionValuePrefix,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Successfully created publisher '%s' with prefix '%s'.\n\nResponse: %s",
		in.FriendlyName, in.CustomizationPrefix, toJSON(created)), nil
}

func (s *Server) getPublisher(ctx context.Context, in getByUniqueNameInput) (string, error) {
	p, err := s.dataverse.PublisherByUniqueName(ctx, in.UniqueName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Publisher information for '%s':\n\n%s", in.UniqueName, toJSON(p)), nil
}

func (s *Server) listPublishers(ctx context.Context, in listPublishersInput) (string, error) {
	pubs, err := s.dataverse.ListPublishers(ctx, dataverse.ListPublishersOptions{
		CustomOnly: boolOr(in.CustomOnly, true),
		Top:        intOr(in.Top, 0),
	})
	if err != nil {
		return "", err
	}

	out := make([]dataverse.PublisherSummary, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, p.Summary())
	}
	return fmt.Sprintf("Found %d publishers:\n\n%s", len(out), toJSON(out)), nil
}

// ===== SOLUTION TOOLS =====

func (s *Server) registerSolutionTools() {
	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "create_dataverse_solution",
			Description: "Create an unmanaged Dataverse solution owned by an existing publisher",
			Category:    CategorySolution,
			Remote:      true,
			Keywords:    []string{"create", "version"},
		},
		title:       "Create solution",
		failure:     "creating solution",
		annotations: remoteCreateAnnotations(),
	}, s.createSolution)

	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "get_dataverse_solution",
			Description: "Get a Dataverse solution and its publisher by unique name",
			Category:    CategorySolution,
			ReadOnly:    true,
			Remote:      true,
		},
		title:       "Get solution",
		failure:     "retrieving solution",
		annotations: remoteReadAnnotations(),
	}, s.getSolution)

	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "list_dataverse_solutions",
			Description: "List Dataverse solutions, unmanaged only by default",
			Category:    CategorySolution,
			ReadOnly:    true,
			Remote:      true,
			Keywords:    []string{"managed", "unmanaged"},
		},
		title:       "List solutions",
		failure:     "listing solutions",
		annotations: remoteReadAnnotations(),
	}, s.listSolutions)
}

func (s *Server) createSolution(ctx context.Context, in createSolutionInput) (string, error) {
	// the publisher must exist before anything is created
	pub, err := s.dataverse.PublisherByUniqueName(ctx, in.PublisherUniqueName)
	if err != nil {
		return "", err
	}

	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Solution for %s", in.FriendlyName)
	}
	version := in.Version
	if version == "" {
		version = defaultVersion
	}

	created, err := s.dataverse.CreateSolution(ctx, dataverse.NewSolution{
		FriendlyName: in.FriendlyName,
		UniqueName:   in.UniqueName,
		Description:  description,
		Version:      version,
		PublisherID:  pub.ID,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Successfully created solution '%s' (%s) linked to publisher '%s'.\n\nResponse: %s",
		in.FriendlyName, in.UniqueName, in.PublisherUniqueName, toJSON(created)), nil
}

func (s *Server) getSolution(ctx context.Context, in getByUniqueNameInput) (string, error) {
	sol, err := s.dataverse.SolutionByUniqueName(ctx, in.UniqueName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Solution information for '%s':\n\n%s", in.UniqueName, toJSON(sol)), nil
}

func (s *Server) listSolutions(ctx context.Context, in listSolutionsInput) (string, error) {
	sols, err := s.dataverse.ListSolutions(ctx, dataverse.ListSolutionsOptions{
		IncludeManaged: boolOr(in.IncludeManaged, false),
		Top:            intOr(in.Top, 0),
	})
	if err != nil {
		return "", err
	}

	out := make([]dataverse.SolutionSummary, 0, len(sols))
	for _, sol := range sols {
		out = append(out, sol.Summary())
	}
	return fmt.Sprintf("Found %d solutions:\n\n%s", len(out), toJSON(out)), nil
}

// ===== CONTEXT TOOLS =====

func (s *Server) registerContextTools() {
	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "set_solution_context",
			Description: "Set the active solution; subsequent metadata operations are associated with it",
			Category:    CategoryContext,
			Remote:      true,
		},
		title:   "Set solution context",
		failure: "setting solution context",
		annotations: &mcp.ToolAnnotations{
			IdempotentHint:  true,
			DestructiveHint: ptr(false),
			OpenWorldHint:   ptr(true),
		},
	}, s.setSolutionContext)

	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "get_solution_context",
			Description: "Show the active solution context",
			Category:    CategoryContext,
			ReadOnly:    true,
		},
		title:   "Get solution context",
		failure: "getting solution context",
		annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:  true,
			OpenWorldHint: ptr(false),
		},
	}, s.getSolutionContext)

	addTool(s, toolDef{
		meta: &ToolMetadata{
			Name:        "clear_solution_context",
			Description: "Clear the active solution context and remove its file",
			Category:    CategoryContext,
		},
		title:   "Clear solution context",
		failure: "clearing solution context",
		annotations: &mcp.ToolAnnotations{
			IdempotentHint:  true,
			DestructiveHint: ptr(true),
			OpenWorldHint:   ptr(false),
		},
	}, s.clearSolutionContext)
}

func (s *Server) setSolutionContext(ctx context.Context, in setSolutionContextInput) (string, error) {
	sc, err := s.contexts.Set(ctx, in.SolutionUniqueName)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Solution context set to '%s' (%s). All subsequent metadata operations will be associated with this solution.\n\n"+
		"Publisher: %s (%s)\nPrefix: %s\n\nContext has been persisted to %s file.",
		sc.SolutionUniqueName, sc.SolutionDisplayName,
		sc.PublisherDisplayName, sc.PublisherUniqueName, sc.CustomizationPrefix,
		s.contextFile), nil
}

func (s *Server) getSolutionContext(ctx context.Context, _ emptyInput) (string, error) {
	sc, err := s.contexts.Get(ctx)
	if err != nil {
		return "", err
	}
	if sc == nil {
		return "No solution context is currently set. Metadata operations will not be associated with any specific solution.", nil
	}
	return describeContext(sc), nil
}

func (s *Server) clearSolutionContext(ctx context.Context, _ emptyInput) (string, error) {
	prev, err := s.contexts.Clear(ctx)
	if err != nil {
		return "", err
	}
	if prev == nil {
		return "Solution context cleared (no context was previously set).", nil
	}
	return fmt.Sprintf("Solution context cleared. Previously set to '%s'. Metadata operations will no longer be associated with any specific solution.\n\n"+
		"%s file has been removed.", prev.SolutionUniqueName, s.contextFile), nil
}

func describeContext(sc *solutionctx.SolutionContext) string {
	return fmt.Sprintf("Current solution context: '%s' (%s)\n\nPublisher: %s (%s)\nPrefix: %s\n\n"+
		"All metadata operations will be associated with this solution.\nLast updated: %s",
		sc.SolutionUniqueName, sc.SolutionDisplayName,
		sc.PublisherDisplayName, sc.PublisherUniqueName, sc.CustomizationPrefix,
		sc.LastUpdated.UTC().Format(time.RFC3339))
}

// toJSON renders v as indented JSON without HTML escaping.
func toJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
