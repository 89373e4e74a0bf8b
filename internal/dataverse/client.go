package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/dataverse-mcp/internal/dataverse"

	maxResponseBody = 16 << 20
	userAgent       = "dataverse-mcp"
)

// Options configures a Client built with New.
type Options struct {
	// BaseURL is the environment URL without the /api/data suffix.
	BaseURL    string
	APIVersion string

	// HTTPClient must attach credentials. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	Logger *zap.Logger
}

// Client issues Web API requests.
type Client struct {
	apiBase    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a Client from explicit options.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base url required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "v9.2"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		apiBase:    strings.TrimRight(opts.BaseURL, "/") + "/api/data/" + opts.APIVersion + "/",
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// NewFromConfig creates an authenticated Client from configuration.
func NewFromConfig(ctx context.Context, cfg config.DataverseConfig, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataverse config: %w", err)
	}

	ts, err := TokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = cfg.Timeout.Duration()

	return New(Options{
		BaseURL:    cfg.URL,
		APIVersion: cfg.APIVersion,
		HTTPClient: hc,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		Logger:     logger,
	})
}

// APIBase returns the Web API root, ending in a slash.
func (c *Client) APIBase() string {
	return c.apiBase
}

// Get fetches path with the query options and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, q *Query, out any) error {
	qs, err := q.Encode()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if qs != "" {
		path += "?" + qs
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post creates a record and decodes the returned representation into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, data, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (err error) {
	ctx, span := otel.Tracer(InstrumentationName).Start(ctx, "dataverse."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("dataverse.path", entitySet(path)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("dataverse request",
		zap.String("method", method),
		zap.String("path", entitySet(path)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// entitySet trims keys and query options so span and log attributes stay
// low cardinality.
func entitySet(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexAny(path, "(?"); i >= 0 {
		path = path[:i]
	}
	return path
}
