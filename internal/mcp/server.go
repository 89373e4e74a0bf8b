package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/dataverse"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/logging"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/secrets"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/solutionctx"
)

// DataverseAPI is the subset of *dataverse.Client the tools use.
type DataverseAPI interface {
	ListPublishers(ctx context.Context, opts dataverse.ListPublishersOptions) ([]dataverse.Publisher, error)
	PublisherByUniqueName(ctx context.Context, uniqueName string) (*dataverse.Publisher, error)
	CreatePublisher(ctx context.Context, p dataverse.NewPublisher) (*dataverse.Publisher, error)
	ListSolutions(ctx context.Context, opts dataverse.ListSolutionsOptions) ([]dataverse.Solution, error)
	SolutionByUniqueName(ctx context.Context, uniqueName string) (*dataverse.Solution, error)
	CreateSolution(ctx context.Context, s dataverse.NewSolution) (*dataverse.Solution, error)
}

// ContextStore holds the active solution context. *solutionctx.Store
// implements it.
type ContextStore interface {
	Set(ctx context.Context, solutionUniqueName string) (*solutionctx.SolutionContext, error)
	Get(ctx context.Context) (*solutionctx.SolutionContext, error)
	Clear(ctx context.Context) (*solutionctx.SolutionContext, error)
}

// Server is an MCP server exposing Dataverse tools.
type Server struct {
	mcp          *mcp.Server
	dataverse    DataverseAPI
	contexts     ContextStore
	scrubber     secrets.Scrubber
	toolRegistry *ToolRegistry
	metrics      *Metrics
	contextFile  string
	logger       *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "dataverse-mcp")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// ContextFile is the file name shown in context tool messages.
	ContextFile string

	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:        "dataverse-mcp",
		Version:     "dev",
		ContextFile: solutionctx.DefaultKey,
		Logger:      logging.NewNop(),
	}
}

// NewServer creates a server and registers all tools.
func NewServer(cfg *Config, api DataverseAPI, contexts ContextStore, scrubber secrets.Scrubber) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if api == nil {
		return nil, errors.New("dataverse client is required")
	}
	if contexts == nil {
		return nil, errors.New("context store is required")
	}
	if scrubber == nil {
		return nil, errors.New("scrubber is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	contextFile := cfg.ContextFile
	if contextFile == "" {
		contextFile = solutionctx.DefaultKey
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:          mcpServer,
		dataverse:    api,
		contexts:     contexts,
		scrubber:     scrubber,
		toolRegistry: NewToolRegistry(),
		metrics:      NewMetrics(logger.Underlying()),
		contextFile:  contextFile,
		logger:       logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// MCPServer returns the underlying SDK server, for transports other than
// stdio.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Registry returns metadata about the registered tools.
func (s *Server) Registry() *ToolRegistry {
	return s.toolRegistry
}

// Run serves MCP on stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
