// Package solutionctx holds the active solution context: the solution and
// publisher that metadata operations in a workspace are associated with.
//
// The context is persisted as JSON through a KVStore (a file named
// .mcp-dataverse in the working directory by default) and loaded lazily on
// first access. Concurrent Set and Clear calls are serialized in process;
// across processes the last write wins.
package solutionctx
