// Package mcp exposes Dataverse publisher, solution and solution-context
// operations as MCP tools.
//
// Every tool has a typed request struct validated before any remote call.
// Results are a single text content item; failures are reported in-band
// with IsError set and a message of the form "Error <doing thing>: <cause>".
// All output passes through the secrets scrubber.
package mcp
