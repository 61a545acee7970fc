package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// defaultLimit is the number of hits returned when the caller sets none.
const defaultLimit = 10

// SearchInput is the input schema for the search_chunks tool.
type SearchInput struct {
	Query   string        `json:"query,omitempty" jsonschema:"full-text query matched against chunk text"`
	Filters []FilterInput `json:"filters,omitempty" jsonschema:"attribute filters combined with AND"`
	Limit   int           `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// FilterInput is one attribute filter.
type FilterInput struct {
	Attribute string `json:"attribute" jsonschema:"one of title, filename, filepath, language, printDate, summary, header_1, header_2, pageIndex"`
	Op        string `json:"op,omitempty" jsonschema:"eq (default) or contains"`
	Value     string `json:"value" jsonschema:"value compared against the attribute"`
}

// SearchOutput is the output schema for the search_chunks tool.
type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput represents a single matched chunk.
type ChunkOutput struct {
	ID         string  `json:"id"`
	Filepath   string  `json:"filepath"`
	Filename   string  `json:"filename"`
	PageIndex  int     `json:"page_index"`
	ChunkIndex int     `json:"chunk_index"`
	Title      string  `json:"title,omitempty"`
	Language   string  `json:"language,omitempty"`
	PrintDate  string  `json:"print_date,omitempty"`
	Header1    string  `json:"header_1,omitempty"`
	Header2    string  `json:"header_2,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// StatusInput is the input schema for the document_status tool.
type StatusInput struct {
	Folder         string `json:"folder,omitempty" jsonschema:"glob restricting documents by filepath"`
	IncompleteOnly bool   `json:"incomplete_only,omitempty" jsonschema:"only return documents with enrichment left to do"`
}

// StatusOutput is the output schema for the document_status tool.
type StatusOutput struct {
	Documents []DocumentStatusOutput `json:"documents"`
	Count     int                    `json:"count"`
	Complete  int                    `json:"complete"`
}

// DocumentStatusOutput is the enrichment state of one Document.
type DocumentStatusOutput struct {
	Filepath    string   `json:"filepath"`
	Filename    string   `json:"filename"`
	PageCount   int      `json:"page_count"`
	Missing     []string `json:"missing,omitempty"`
	Signatures  int      `json:"signatures"`
	PagesInSync bool     `json:"pages_in_sync"`
	Chunks      int      `json:"chunks"`
	Complete    bool     `json:"complete"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Full-text search over published document chunks with attribute filters",
	}, s.handleSearch)

	if s.ports.Status != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "document_status",
			Description: "Report which derived fields each document has and whether its pages are in sync",
		}, s.handleStatus)
	}
}

// handleSearch handles the search_chunks tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := domain.SearchQuery{Text: input.Query, Limit: limit}
	for _, f := range input.Filters {
		op := domain.FilterOp(f.Op)
		if op == "" {
			op = domain.FilterEquals
		}
		query.Filters = append(query.Filters, domain.SearchFilter{
			Attribute: f.Attribute,
			Op:        op,
			Value:     f.Value,
		})
	}

	hits, err := s.ports.Search.Search(ctx, query)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]ChunkOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		c := hits[i].Chunk
		output.Results[i] = ChunkOutput{
			ID:         c.ID,
			Filepath:   c.Filepath,
			Filename:   c.Filename,
			PageIndex:  c.PageIndex,
			ChunkIndex: c.ChunkIndex,
			Title:      domain.Deref(c.Title),
			Language:   domain.Deref(c.Language),
			PrintDate:  domain.Deref(c.PrintDate),
			Header1:    domain.Deref(c.Header1),
			Header2:    domain.Deref(c.Header2),
			Score:      hits[i].Score,
			Content:    c.Content,
		}
	}

	return nil, output, nil
}

// handleStatus handles the document_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	statuses, err := s.ports.Status.Status(ctx, domain.DocumentFilter{Folder: input.Folder})
	if err != nil {
		return nil, StatusOutput{}, err
	}

	output := StatusOutput{Documents: make([]DocumentStatusOutput, 0, len(statuses))}
	for i := range statuses {
		st := statuses[i]
		complete := st.Complete()
		if complete {
			output.Complete++
		}
		if input.IncompleteOnly && complete {
			continue
		}
		output.Documents = append(output.Documents, DocumentStatusOutput{
			Filepath:    st.Filepath,
			Filename:    st.Filename,
			PageCount:   st.PageCount,
			Missing:     st.Missing(),
			Signatures:  st.SignatureCount,
			PagesInSync: st.PagesInSync,
			Chunks:      st.Chunks,
			Complete:    complete,
		})
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}
