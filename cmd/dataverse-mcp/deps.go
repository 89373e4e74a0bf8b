package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/dataverse"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/logging"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/mcp"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/secrets"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/solutionctx"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/telemetry"
)

// dependencies holds everything built from configuration.
type dependencies struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	client    *dataverse.Client
	files     *solutionctx.FileStore
	store     *solutionctx.Store
}

// Constructors swapped by tests.
var (
	newTelemetry = telemetry.New
	newLogger    = logging.NewLogger
)

// initDependencies builds logging, telemetry and the context store. The
// Dataverse client is only created when remote is true.
func initDependencies(ctx context.Context, cfg *config.Config, remote bool) (*dependencies, error) {
	tel, err := newTelemetry(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	var provider otellog.LoggerProvider
	if cfg.Logging.OTEL {
		provider = global.GetLoggerProvider()
	}
	logger, err := newLogger(logging.FromSettings(cfg.Logging), provider)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// New degrades rather than failing on exporter errors.
	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("problems", health.Problems))
	}

	deps := &dependencies{cfg: cfg, logger: logger, telemetry: tel}

	var resolver solutionctx.Resolver
	if remote {
		deps.client, err = dataverse.NewFromConfig(ctx, cfg.Dataverse, logger.Named("dataverse").Underlying())
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		resolver = deps.client
	}

	deps.files, err = solutionctx.NewFileStore(cfg.Context.Dir)
	if err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("context directory: %w", err)
	}
	deps.store = solutionctx.NewStore(deps.files, resolver,
		solutionctx.WithKey(cfg.Context.FileName),
		solutionctx.WithLogger(logger.Named("solutionctx").Underlying()),
	)

	return deps, nil
}

// Close flushes telemetry and logs. Safe on partially built dependencies.
func (d *dependencies) Close(ctx context.Context) {
	if d.telemetry != nil {
		// ctx is usually already canceled by a signal here
		if err := d.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil && d.logger != nil {
			d.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}
	if d.logger != nil {
		_ = d.logger.Sync()
	}
}

// newMCPServer wires the tool server. api may be nil for commands that
// only inspect tool metadata.
func (d *dependencies) newMCPServer(api mcp.DataverseAPI) (*mcp.Server, error) {
	if api == nil {
		api = unconfiguredAPI{}
	}

	scfg := secrets.DefaultConfig()
	scfg.Enabled = d.cfg.Secrets.Enabled
	scrubber, err := secrets.New(scfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrubber: %w", err)
	}

	mcfg := mcp.DefaultConfig()
	mcfg.Version = version
	mcfg.ContextFile = d.cfg.Context.FileName
	mcfg.Logger = d.logger

	return mcp.NewServer(mcfg, api, d.store, scrubber)
}

var errNotConfigured = errors.New("dataverse connection is not configured")

// unconfiguredAPI backs servers built without a Dataverse connection.
type unconfiguredAPI struct{}

func (unconfiguredAPI) ListPublishers(context.Context, dataverse.ListPublishersOptions) ([]dataverse.Publisher, error) {
	return nil, errNotConfigured
}

func (unconfiguredAPI) PublisherByUniqueName(context.Context, string) (*dataverse.Publisher, error) {
	return nil, errNotConfigured
}

func (unconfiguredAPI) PublisherByID(context.Context, uuid.UUID) (*dataverse.Publisher, error) {
	return nil, errNotConfigured
}

func (unconfiguredAPI) CreatePublisher(context.Context, dataverse.NewPublisher) (*dataverse.Publisher, error) {
	return nil, errNotConfigured
}

func (unconfiguredAPI) ListSolutions(context.Context, dataverse.ListSolutionsOptions) ([]dataverse.Solution, error) {
	return nil, errNotConfigured
}

func (unconfiguredAPI) SolutionByUniqueName(context.Context, string) (*dataverse.Solution, error) {
	return nil, errNotConfigured
}

func (unconfiguredAPI) CreateSolution(context.Context, dataverse.NewSolution) (*dataverse.Solution, error) {
	return nil, errNotConfigured
}
