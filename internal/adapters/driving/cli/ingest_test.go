package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

func TestIngestCmd_DefaultsToStagingRoot(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("ingest")

	require.NoError(t, err)
	assert.Equal(t, []string{"."}, mocks.ingest.roots)
	assert.Contains(t, out, ".: 2 created (7 pages), 1 existing, 0 failed")
}

func TestIngestCmd_MultiplePaths(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("ingest", "contracts", "memos/B.pdf")

	require.NoError(t, err)
	assert.Equal(t, []string{"contracts", "memos/B.pdf"}, mocks.ingest.roots)
}

func TestIngestCmd_PropagatesErrors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.ingest.err = domain.ErrInvalidInput

	_, err := runCommand("ingest", "missing")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "ingest missing")
}
