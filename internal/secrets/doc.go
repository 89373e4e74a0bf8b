// Package secrets detects and redacts credentials in tool output.
//
// Every MCP tool result passes through a Scrubber before it is returned to
// the client. Dataverse error bodies and echoed requests can carry bearer
// tokens, Entra ID client secrets or connection strings; findings keep only
// rule IDs and positions, never the matched value.
package secrets
