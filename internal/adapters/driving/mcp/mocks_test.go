package mcp

import (
	"context"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits  []domain.SearchHit
	err   error
	query domain.SearchQuery
}

func (m *mockSearchService) Search(_ context.Context, query domain.SearchQuery) ([]domain.SearchHit, error) {
	m.query = query
	return m.hits, m.err
}

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	statuses []domain.DocumentStatus
	chunks   []domain.Chunk
	err      error
	filter   domain.DocumentFilter
	key      domain.DocumentKey
}

func (m *mockStatusService) Status(_ context.Context, filter domain.DocumentFilter) ([]domain.DocumentStatus, error) {
	m.filter = filter
	return m.statuses, m.err
}

func (m *mockStatusService) Chunks(_ context.Context, key domain.DocumentKey) ([]domain.Chunk, error) {
	m.key = key
	return m.chunks, m.err
}

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	runs  []domain.RunReport
	err   error
	limit int
}

func (m *mockPipelineService) Run(_ context.Context, _ domain.RunOptions) (*domain.RunReport, error) {
	return &domain.RunReport{}, m.err
}

func (m *mockPipelineService) History(_ context.Context, limit int) ([]domain.RunReport, error) {
	m.limit = limit
	return m.runs, m.err
}
