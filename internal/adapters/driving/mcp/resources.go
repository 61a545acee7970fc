package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for cortexdocs resources.
	uriScheme = "cortexdocs://"

	// historyLimit is how many runs the runs resource lists.
	historyLimit = 20
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Pipeline != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "runs",
			Name:        "runs",
			Description: "Most recent pipeline runs with per-stage counts",
			MIMEType:    "application/json",
		}, s.handleRunsResource)
	}

	if s.ports.Status != nil {
		// Template for the chunks of one Document, addressed by staged path.
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "chunks/{+path}",
			Name:        "document-chunks",
			Description: "Current chunks of a document, by staged path",
			MIMEType:    "application/json",
		}, s.handleChunksResource)
	}
}

// handleRunsResource returns the run ledger, newest first.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	runs, err := s.ports.Pipeline.History(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if runs == nil {
		runs = []domain.RunReport{}
	}
	return jsonResult(req.Params.URI, runs)
}

// handleChunksResource returns the chunks of one Document.
func (s *Server) handleChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract path from URI: cortexdocs://chunks/{path}
	path := extractDocumentPath(req.Params.URI)
	if path == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunks, err := s.ports.Status.Chunks(ctx, domain.NewDocumentKey(path))
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	type chunkInfo struct {
		ID         string `json:"id"`
		PageIndex  int    `json:"page_index"`
		ChunkIndex int    `json:"chunk_index"`
		Content    string `json:"content"`
	}
	infos := make([]chunkInfo, len(chunks))
	for i := range chunks {
		infos[i] = chunkInfo{
			ID:         chunks[i].ID,
			PageIndex:  chunks[i].PageIndex,
			ChunkIndex: chunks[i].ChunkIndex,
			Content:    chunks[i].Content,
		}
	}
	return jsonResult(req.Params.URI, infos)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentPath extracts the staged path from a URI like
// cortexdocs://chunks/contracts/A.pdf.
func extractDocumentPath(uri string) string {
	const prefix = uriScheme + "chunks/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	path, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return path
}
