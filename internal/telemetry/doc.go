// Package telemetry provides OpenTelemetry instrumentation for dataverse-mcp.
//
// New installs global tracer and meter providers that export over OTLP
// (gRPC or HTTP/protobuf). The Dataverse client starts a span per Web API
// request and the MCP layer records per-tool metrics through the globals,
// so nothing else needs a handle on the Telemetry instance.
//
// Telemetry failures do not stop the server. If an exporter cannot be
// created, the instance reports itself degraded and the globals stay no-op.
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  service_name: "dataverse-mcp"
//
// Tests use TestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	defer tt.Restore()
//	...
//	tt.AssertSpanExists(t, "dataverse.GET")
package telemetry
