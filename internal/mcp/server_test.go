package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/dataverse"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/logging"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/secrets"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/solutionctx"
	"github.com/fyrsmithlabs/dataverse-mcp/internal/telemetry"
)

type harness struct {
	api     *fakeDataverse
	server  *Server
	session *mcp.ClientSession
	dir     string
	logs    *logging.TestLogger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	api := newFakeDataverse(t)
	client, err := dataverse.New(dataverse.Options{BaseURL: api.URL, HTTPClient: api.Client()})
	require.NoError(t, err)

	dir := t.TempDir()
	fs, err := solutionctx.NewFileStore(dir)
	require.NoError(t, err)
	store := solutionctx.NewStore(fs, client)

	logs := logging.NewTestLogger()
	cfg := DefaultConfig()
	cfg.Logger = logs.Logger

	srv, err := NewServer(cfg, client, store, secrets.MustNew(nil))
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := mcpClient.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return &harness{api: api, server: srv, session: session, dir: dir, logs: logs}
}

// call invokes a tool and returns its text and error flag.
func (h *harness) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text, res.IsError
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	client, err := dataverse.New(dataverse.Options{BaseURL: "https://contoso.crm.dynamics.com"})
	require.NoError(t, err)
	fs, err := solutionctx.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := solutionctx.NewStore(fs, client)
	scrubber := secrets.MustNew(nil)

	_, err = NewServer(nil, nil, store, scrubber)
	assert.ErrorContains(t, err, "dataverse client is required")

	_, err = NewServer(nil, client, nil, scrubber)
	assert.ErrorContains(t, err, "context store is required")

	_, err = NewServer(nil, client, store, nil)
	assert.ErrorContains(t, err, "scrubber is required")

	srv, err := NewServer(nil, client, store, scrubber)
	require.NoError(t, err)
	assert.Equal(t, 9, srv.Registry().Count())
}

func TestListTools(t *testing.T) {
	h := newHarness(t)

	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	byName := make(map[string]*mcp.Tool)
	for _, tool := range res.Tools {
		byName[tool.Name] = tool
	}

	for _, name := range []string{
		"create_dataverse_publisher", "create_dataverse_solution",
		"get_dataverse_publisher", "get_dataverse_solution",
		"list_dataverse_publishers", "list_dataverse_solutions",
		"set_solution_context", "get_solution_context", "clear_solution_context",
	} {
		require.Contains(t, byName, name)
		require.NotNil(t, byName[name].Annotations, name)
	}

	assert.True(t, byName["list_dataverse_solutions"].Annotations.ReadOnlyHint)
	assert.True(t, byName["get_solution_context"].Annotations.ReadOnlyHint)
	assert.False(t, byName["create_dataverse_publisher"].Annotations.ReadOnlyHint)
	assert.True(t, byName["clear_solution_context"].Annotations.IdempotentHint)
	assert.Equal(t, "Create publisher", byName["create_dataverse_publisher"].Annotations.Title)
}

func TestCreatePublisher(t *testing.T) {
	h := newHarness(t)

	text, isErr := h.call(t, "create_dataverse_publisher", map[string]any{
		"friendlyName":                   "Contoso",
		"uniqueName":                     "contoso",
		"customizationPrefix":            "cts",
		"customizationOptionValuePrefix": 72700,
	})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Successfully created publisher 'Contoso' with prefix 'cts'.\n\nResponse: {"), text)
	assert.Contains(t, text, `"description": "Publisher for Contoso"`)
	assert.Equal(t, 1, h.api.postCount())
}

func TestCreatePublisher_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "blank friendly name",
			args: map[string]any{"friendlyName": " ", "uniqueName": "contoso", "customizationPrefix": "cts", "customizationOptionValuePrefix": 72700},
			want: "invalid friendlyName: is required",
		},
		{
			name: "prefix too short",
			args: map[string]any{"friendlyName": "C", "uniqueName": "contoso", "customizationPrefix": "c", "customizationOptionValuePrefix": 72700},
			want: "invalid customizationPrefix: must be 2-8 characters",
		},
		{
			name: "reserved prefix",
			args: map[string]any{"friendlyName": "C", "uniqueName": "contoso", "customizationPrefix": "mscrmx", "customizationOptionValuePrefix": 72700},
			want: "cannot start with 'mscrm'",
		},
		{
			name: "option value prefix out of range",
			args: map[string]any{"friendlyName": "C", "uniqueName": "contoso", "customizationPrefix": "cts", "customizationOptionValuePrefix": 100},
			want: "invalid customizationOptionValuePrefix: must be between 10000 and 99999",
		},
		{
			name: "unique name with quote",
			args: map[string]any{"friendlyName": "C", "uniqueName": "con'toso", "customizationPrefix": "cts", "customizationOptionValuePrefix": 72700},
			want: "invalid uniqueName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := h.call(t, "create_dataverse_publisher", tt.args)
			assert.True(t, isErr)
			assert.True(t, strings.HasPrefix(text, "Error creating publisher: "), text)
			assert.Contains(t, text, tt.want)
		})
	}
	assert.Zero(t, h.api.postCount())
}

func TestCreateSolution(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso", "cts", false)

	text, isErr := h.call(t, "create_dataverse_solution", map[string]any{
		"friendlyName":        "Core",
		"uniqueName":          "contoso_core",
		"publisherUniqueName": "contoso",
	})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Successfully created solution 'Core' (contoso_core) linked to publisher 'contoso'."), text)
	assert.Contains(t, text, `"version": "1.0.0.0"`)
	assert.Contains(t, text, `"description": "Solution for Core"`)
	assert.Equal(t, 1, h.api.postCount())
}

func TestCreateSolution_UnknownPublisherFailsBeforeCreate(t *testing.T) {
	h := newHarness(t)

	text, isErr := h.call(t, "create_dataverse_solution", map[string]any{
		"friendlyName":        "Core",
		"uniqueName":          "contoso_core",
		"version":             "2.1",
		"publisherUniqueName": "nobody",
	})
	assert.True(t, isErr)
	assert.Equal(t, "Error creating solution: Publisher with unique name 'nobody' not found", text)
	assert.Zero(t, h.api.postCount())
}

func TestCreateSolution_BadVersion(t *testing.T) {
	h := newHarness(t)

	text, isErr := h.call(t, "create_dataverse_solution", map[string]any{
		"friendlyName":        "Core",
		"uniqueName":          "contoso_core",
		"version":             "one",
		"publisherUniqueName": "contoso",
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid version")
}

func TestGetPublisherAndSolution(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso", "cts", false)
	h.api.addSolution("contoso_core", "Core", "contoso", false)

	text, isErr := h.call(t, "get_dataverse_publisher", map[string]any{"uniqueName": "contoso"})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Publisher information for 'contoso':\n\n{"), text)

	text, isErr = h.call(t, "get_dataverse_solution", map[string]any{"uniqueName": "contoso_core"})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Solution information for 'contoso_core':\n\n{"), text)
	assert.Contains(t, text, `"customizationprefix": "cts"`)

	text, isErr = h.call(t, "get_dataverse_solution", map[string]any{"uniqueName": "missing"})
	assert.True(t, isErr)
	assert.Equal(t, "Error retrieving solution: Solution with unique name 'missing' not found", text)

	text, isErr = h.call(t, "get_dataverse_publisher", map[string]any{"uniqueName": "missing"})
	assert.True(t, isErr)
	assert.Equal(t, "Error retrieving publisher: Publisher with unique name 'missing' not found", text)
}

func TestListPublishers(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso", "cts", false)
	h.api.addPublisher("MicrosoftCorporation", "Microsoft Corporation", "", true)

	text, isErr := h.call(t, "list_dataverse_publishers", nil)
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Found 1 publishers:\n\n"), text)
	assert.NotContains(t, text, "MicrosoftCorporation")
	assert.Contains(t, text, `"uniqueName": "contoso"`)

	text, isErr = h.call(t, "list_dataverse_publishers", map[string]any{"customOnly": false})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Found 2 publishers:"), text)
	assert.Contains(t, text, `"isReadOnly": true`)
}

func TestListSolutions(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso", "cts", false)
	h.api.addSolution("one", "One", "contoso", false)
	h.api.addSolution("two", "Two", "contoso", false)
	h.api.addSolution("three", "Three", "contoso", false)
	h.api.addSolution("managed", "Managed", "contoso", true)

	text, isErr := h.call(t, "list_dataverse_solutions", nil)
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Found 3 solutions:"), text)
	assert.NotContains(t, text, `"uniqueName": "managed"`)
	assert.Contains(t, text, `"publisher": {`)

	text, isErr = h.call(t, "list_dataverse_solutions", map[string]any{"includeManaged": true})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Found 4 solutions:"), text)

	text, isErr = h.call(t, "list_dataverse_solutions", map[string]any{"top": 2})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "Found 2 solutions:"), text)

	text, isErr = h.call(t, "list_dataverse_solutions", map[string]any{"top": 0})
	assert.True(t, isErr)
	assert.Equal(t, "Error listing solutions: invalid top: must be at least 1", text)
}

func TestListSolutions_Empty(t *testing.T) {
	h := newHarness(t)

	text, isErr := h.call(t, "list_dataverse_solutions", nil)
	require.False(t, isErr, text)
	assert.Equal(t, "Found 0 solutions:\n\n[]", text)
}

func TestRemoteError(t *testing.T) {
	h := newHarness(t)
	h.api.fail(503)

	text, isErr := h.call(t, "list_dataverse_publishers", nil)
	assert.True(t, isErr)
	assert.Equal(t, "Error listing publishers: Dataverse API error 503 (0x80072322): Service temporarily unavailable", text)
}

func TestSolutionContextLifecycle(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso Ltd", "cts", false)
	h.api.addSolution("contoso_core", "Contoso Core", "contoso", false)
	contextFile := filepath.Join(h.dir, ".mcp-dataverse")

	text, isErr := h.call(t, "get_solution_context", nil)
	require.False(t, isErr)
	assert.Equal(t, "No solution context is currently set. Metadata operations will not be associated with any specific solution.", text)

	text, isErr = h.call(t, "clear_solution_context", nil)
	require.False(t, isErr)
	assert.Equal(t, "Solution context cleared (no context was previously set).", text)

	text, isErr = h.call(t, "set_solution_context", map[string]any{"solutionUniqueName": "contoso_core"})
	require.False(t, isErr, text)
	assert.Equal(t, "Solution context set to 'contoso_core' (Contoso Core). All subsequent metadata operations will be associated with this solution.\n\n"+
		"Publisher: Contoso Ltd (contoso)\nPrefix: cts\n\nContext has been persisted to .mcp-dataverse file.", text)
	_, err := os.Stat(contextFile)
	require.NoError(t, err)

	text, isErr = h.call(t, "get_solution_context", nil)
	require.False(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Current solution context: 'contoso_core' (Contoso Core)\n\nPublisher: Contoso Ltd (contoso)\nPrefix: cts\n\n"), text)
	assert.Contains(t, text, "\nLast updated: ")

	text, isErr = h.call(t, "set_solution_context", map[string]any{"solutionUniqueName": "missing"})
	assert.True(t, isErr)
	assert.Equal(t, "Error setting solution context: Solution with unique name 'missing' not found", text)

	text, isErr = h.call(t, "get_solution_context", nil)
	require.False(t, isErr)
	assert.Contains(t, text, "'contoso_core'", "failed set keeps the previous context")

	text, isErr = h.call(t, "clear_solution_context", nil)
	require.False(t, isErr)
	assert.Equal(t, "Solution context cleared. Previously set to 'contoso_core'. Metadata operations will no longer be associated with any specific solution.\n\n"+
		".mcp-dataverse file has been removed.", text)
	_, err = os.Stat(contextFile)
	assert.True(t, os.IsNotExist(err))

	text, _ = h.call(t, "get_solution_context", nil)
	assert.True(t, strings.HasPrefix(text, "No solution context is currently set."))
}

func TestToolLogsCarrySolution(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso Ltd", "cts", false)
	h.api.addSolution("contoso_core", "Contoso Core", "contoso", false)

	_, isErr := h.call(t, "set_solution_context", map[string]any{"solutionUniqueName": "contoso_core"})
	require.False(t, isErr)
	h.logs.Reset()

	_, isErr = h.call(t, "list_dataverse_solutions", nil)
	require.False(t, isErr)

	h.logs.AssertField(t, "tool call completed", "tool", "list_dataverse_solutions")
	h.logs.AssertField(t, "tool call completed", "solution", "contoso_core")
	h.logs.AssertLogged(t, logging.TraceLevel, "tool input")
}

func TestOutputIsScrubbed(t *testing.T) {
	h := newHarness(t)
	h.api.addPublisher("contoso", "Contoso", "cts", false)

	leak := "client_secret=abcdefghijklmnop"
	h.api.addSolution("leaky", leak, "contoso", false)

	text, isErr := h.call(t, "get_dataverse_solution", map[string]any{"uniqueName": "leaky"})
	require.False(t, isErr, text)
	assert.NotContains(t, text, "abcdefghijklmnop")
	assert.Contains(t, text, "[REDACTED]")
}

func TestToolMetrics(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	defer tt.Restore()

	h := newHarness(t)

	_, _ = h.call(t, "get_dataverse_solution", map[string]any{"uniqueName": "missing"})
	_, _ = h.call(t, "get_dataverse_solution", map[string]any{"uniqueName": "bad name"})
	_, _ = h.call(t, "get_solution_context", nil)

	assert.Equal(t, int64(2), tt.CounterValue(t, "dataverse_mcp.tool.invocations_total",
		attributeTool("get_dataverse_solution")))
	assert.Equal(t, int64(1), tt.CounterValue(t, "dataverse_mcp.tool.errors_total",
		attributeTool("get_dataverse_solution"), attributeReason(reasonNotFound)))
	assert.Equal(t, int64(1), tt.CounterValue(t, "dataverse_mcp.tool.errors_total",
		attributeTool("get_dataverse_solution"), attributeReason(reasonValidation)))

	tt.AssertSpanExists(t, "mcp.tool.get_solution_context")
	tt.AssertSpanExists(t, "dataverse.get")
}
