package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

type mockIngestService struct {
	roots  []string
	report *domain.IngestReport
	err    error
}

func (m *mockIngestService) Ingest(_ context.Context, root string) (*domain.IngestReport, error) {
	m.roots = append(m.roots, root)
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.IngestReport{Created: 2, Existing: 1, Pages: 7}, nil
}

type mockPipelineService struct {
	opts  domain.RunOptions
	runs  []domain.RunReport
	limit int
	err   error
}

func (m *mockPipelineService) Run(_ context.Context, opts domain.RunOptions) (*domain.RunReport, error) {
	m.opts = opts
	stages := opts.Stages
	if len(stages) == 0 {
		stages = domain.AllStages()
	}
	report := &domain.RunReport{
		ID:        "run-1",
		Filter:    opts.Filter.Folder,
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2026, 3, 1, 9, 0, 2, 0, time.UTC),
	}
	for _, s := range stages {
		report.Stages = append(report.Stages, domain.StageReport{Stage: s, Selected: 3, Processed: 3})
	}
	if m.err != nil {
		report.Error = m.err.Error()
		return report, m.err
	}
	return report, nil
}

func (m *mockPipelineService) History(_ context.Context, limit int) ([]domain.RunReport, error) {
	m.limit = limit
	return m.runs, m.err
}

type mockStatusService struct {
	filter   domain.DocumentFilter
	key      domain.DocumentKey
	statuses []domain.DocumentStatus
	chunks   []domain.Chunk
	err      error
}

func (m *mockStatusService) Status(_ context.Context, filter domain.DocumentFilter) ([]domain.DocumentStatus, error) {
	m.filter = filter
	return m.statuses, m.err
}

func (m *mockStatusService) Chunks(_ context.Context, key domain.DocumentKey) ([]domain.Chunk, error) {
	m.key = key
	return m.chunks, m.err
}

type mockSearchService struct {
	query domain.SearchQuery
	hits  []domain.SearchHit
	err   error
}

func (m *mockSearchService) Search(_ context.Context, query domain.SearchQuery) ([]domain.SearchHit, error) {
	m.query = query
	return m.hits, m.err
}

type mockSettingsService struct {
	settings *domain.Settings
	set      map[string]string
	err      error
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"ai.api_key", "store.namespace"}
}

type mockScheduler struct {
	started bool
}

func (m *mockScheduler) Start(_ context.Context) error {
	m.started = true
	return nil
}

func (m *mockScheduler) Stop() error { return nil }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ingest    *mockIngestService
	pipeline  *mockPipelineService
	status    *mockStatusService
	search    *mockSearchService
	settings  *mockSettingsService
	scheduler *mockScheduler
}

var mocks testServices

// setupTestServices installs mock services and returns a cleanup function
// restoring the previous services and flag values.
func setupTestServices() func() {
	settings := domain.DefaultSettings()
	settings.Store.DataDir = "/tmp/cortexdocs/data"
	settings.StagingDir = "/tmp/cortexdocs/staging"

	mocks = testServices{
		ingest:   &mockIngestService{},
		pipeline: &mockPipelineService{},
		status: &mockStatusService{
			statuses: []domain.DocumentStatus{
				{
					DocumentKey: domain.NewDocumentKey("contracts/A.pdf"),
					PageCount:   3,
					HasTitle:    true, HasPrintDate: true, HasLanguage: true, HasSummary: true,
					HasSignatures: true, SignatureCount: 2, SignaturesChecked: true,
					PagesInSync: true, Chunks: 6,
				},
				{
					DocumentKey: domain.NewDocumentKey("memos/B.pdf"),
					PageCount:   1,
					HasTitle:    true,
				},
			},
			chunks: []domain.Chunk{
				{ID: "c-0", PageIndex: 0, ChunkIndex: 0, Content: "contracts/A.pdf - Page 0:\nFirst chunk"},
			},
		},
		search: &mockSearchService{
			hits: []domain.SearchHit{{
				Chunk: domain.Chunk{
					ID:          "c-0",
					DocumentKey: domain.NewDocumentKey("contracts/A.pdf"),
					Content:     "contracts/A.pdf - Page 0:\nPayment is due on delivery.",
					Title:       domain.StringPtr("Master Agreement"),
					Header1:     domain.StringPtr("Terms"),
				},
				Score: 2.5,
			}},
		},
		settings:  &mockSettingsService{settings: &settings},
		scheduler: &mockScheduler{},
	}

	prev := Services{
		Ingest:     ingestService,
		Pipeline:   pipelineService,
		Status:     statusService,
		Search:     searchService,
		Settings:   settingsService,
		Scheduler:  scheduler,
		ValidateAI: validateAI,
	}
	setServices(Services{
		Ingest:    mocks.ingest,
		Pipeline:  mocks.pipeline,
		Status:    mocks.status,
		Search:    mocks.search,
		Settings:  mocks.settings,
		Scheduler: mocks.scheduler,
	})

	return func() {
		setServices(prev)
		resetFlags()
	}
}

// resetFlags restores flag variables, which cobra keeps between runs.
func resetFlags() {
	runFolder, runJSON = "", false
	runCmd.Flags().Lookup("folder").Changed = false
	searchLimit, searchJSON = 10, false
	searchEquals, searchContains = nil, nil
	statusFolder, statusIncomplete, statusJSON = "", false, false
	historyLimit, historyJSON = 10, false
}

// runCommand executes the root command with args and returns its output.
func runCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
