package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
)

func TestStatusCmd_ListsDocuments(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("status", "--folder", "contracts/*")

	require.NoError(t, err)
	assert.Equal(t, "contracts/*", mocks.status.filter.Folder)
	assert.Contains(t, out, "FILEPATH\tPAGES")
	assert.Contains(t, out, "contracts/A.pdf\t3\t2\t6\ttrue\t-")
	assert.Contains(t, out, "memos/B.pdf\t1\t0\t0\tfalse\tprintDate,language,summary,signatures")
	assert.Contains(t, out, "1 of 2 documents complete")
}

func TestStatusCmd_IncompleteOnly(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("status", "--incomplete", "--json")

	require.NoError(t, err)
	var statuses []domain.DocumentStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "memos/B.pdf", statuses[0].Filepath)
}

func TestStatusCmd_AllComplete(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.status.statuses = mocks.status.statuses[:1]

	out, err := runCommand("status", "--incomplete")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents to show (1 of 1 complete).")
}

func TestStatusCmd_PropagatesErrors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.status.err = domain.ErrStorageUnavailable

	_, err := runCommand("status")

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestChunksCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("chunks", "contracts/A.pdf")

	require.NoError(t, err)
	assert.Equal(t, domain.NewDocumentKey("contracts/A.pdf"), mocks.status.key)
	assert.Contains(t, out, "--- page 0, chunk 0 (c-0)")
	assert.Contains(t, out, "First chunk")
}

func TestChunksCmd_NoChunks(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.status.chunks = nil

	out, err := runCommand("chunks", "memos/B.pdf")

	require.NoError(t, err)
	assert.Contains(t, out, "No chunks.")
}

func TestChunksCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := runCommand("chunks")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}
