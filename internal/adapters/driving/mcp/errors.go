// Package mcp provides an MCP (Model Context Protocol) server adapter for
// cortexdocs. It lets AI assistants search published chunks and inspect
// document enrichment progress.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
