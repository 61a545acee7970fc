package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/ratelimit"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// fakeModels records requests and returns a canned reply.
type fakeModels struct {
	reply    string
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

var metadataSchema = driven.Schema{
	{Name: "title", Description: "The title."},
	{Name: "language", Description: "The language."},
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNewClient_DefaultModel(t *testing.T) {
	c := newClient(&fakeModels{}, Config{})
	assert.Equal(t, DefaultModel, c.ModelName())
	assert.NoError(t, c.Close())
}

func TestClient_ExtractText(t *testing.T) {
	models := &fakeModels{reply: `{"title": "Master Agreement", "language": "English"}`}
	c := newClient(models, Config{Model: "gemini-test"})

	res, err := c.ExtractText(context.Background(), "MASTER AGREEMENT\nThis agreement...", metadataSchema)
	require.NoError(t, err)

	title, ok := res.String("title")
	assert.True(t, ok)
	assert.Equal(t, "Master Agreement", title)
	assert.Equal(t, "gemini-test", res.Model)

	assert.Equal(t, "gemini-test", models.model)
	require.Len(t, models.contents, 1)
	require.Len(t, models.contents[0].Parts, 2)
	assert.Contains(t, models.contents[0].Parts[0].Text, `"title"`)
	assert.Equal(t, "MASTER AGREEMENT\nThis agreement...", models.contents[0].Parts[1].Text)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	require.NotNil(t, models.config.ResponseSchema)
	assert.Equal(t, []string{"title", "language"}, models.config.ResponseSchema.PropertyOrdering)
}

func TestClient_ExtractFileSendsInlineBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0600))

	models := &fakeModels{reply: "```json\n{\"title\": \"A\"}\n```"}
	c := newClient(models, Config{})

	res, err := c.ExtractFile(context.Background(), path, metadataSchema)
	require.NoError(t, err)
	title, _ := res.String("title")
	assert.Equal(t, "A", title)

	part := models.contents[0].Parts[1]
	require.NotNil(t, part.InlineData)
	assert.Equal(t, "application/pdf", part.InlineData.MIMEType)
	assert.Equal(t, []byte("%PDF-1.4 test"), part.InlineData.Data)
}

func TestClient_ExtractFileMissing(t *testing.T) {
	c := newClient(&fakeModels{}, Config{})

	_, err := c.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), metadataSchema)
	assert.Error(t, err)
}

func TestClient_ExtractErrors(t *testing.T) {
	tests := []struct {
		name    string
		models  *fakeModels
		text    string
		wantErr error
	}{
		{"blank input", &fakeModels{}, "  ", domain.ErrEmptyResponse},
		{"empty reply", &fakeModels{reply: ""}, "text", domain.ErrEmptyResponse},
		{"malformed reply", &fakeModels{reply: "not json"}, "text", domain.ErrMalformedResponse},
		{"schema mismatch", &fakeModels{reply: `{"title": ["a"]}`}, "text", domain.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(tt.models, Config{})
			_, err := c.ExtractText(context.Background(), tt.text, metadataSchema)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_RateLimitErrorTriggersBackoff(t *testing.T) {
	limiter := ratelimit.New(100)
	quota := genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	c := newClient(&fakeModels{err: fmt.Errorf("generate: %w", quota)}, Config{Limiter: limiter})

	_, err := c.Summarise(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini:")
	assert.False(t, limiter.RetryAt().IsZero())
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api 429", genai.APIError{Code: 429}, true},
		{"wrapped api 429", fmt.Errorf("call: %w", genai.APIError{Code: 429}), true},
		{"api 429 pointer", &genai.APIError{Code: 429}, true},
		{"api 500", genai.APIError{Code: 500, Status: "INTERNAL"}, false},
		{"429 in a plain message", errors.New("document 429.pdf not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimited(tt.err))
		})
	}
}

func TestClient_ServerErrorDoesNotBackOff(t *testing.T) {
	limiter := ratelimit.New(100)
	c := newClient(&fakeModels{err: genai.APIError{Code: 500}}, Config{Limiter: limiter})

	_, err := c.Summarise(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, limiter.RetryAt().IsZero())
}

func TestClient_Summarise(t *testing.T) {
	models := &fakeModels{reply: "  A short summary.  "}
	c := newClient(models, Config{})

	got, err := c.Summarise(context.Background(), "Summarize this.")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", got)
	assert.Empty(t, models.config.ResponseMIMEType)
	assert.Equal(t, "Summarize this.", models.contents[0].Parts[0].Text)

	models.reply = "   "
	_, err = c.Summarise(context.Background(), "again")
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
}

func TestResponseSchema(t *testing.T) {
	got := ResponseSchema(driven.Schema{
		{Name: "title", Description: "The title."},
		{Name: "signatures", Description: "All signatures.", Array: true},
	})

	assert.Equal(t, genai.TypeObject, got.Type)
	assert.Equal(t, genai.TypeString, got.Properties["title"].Type)
	assert.Equal(t, genai.TypeArray, got.Properties["signatures"].Type)
	assert.Equal(t, genai.TypeString, got.Properties["signatures"].Items.Type)
	assert.Equal(t, "All signatures.", got.Properties["signatures"].Description)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", mimeType("a/B.PDF"))
	assert.Equal(t, "application/octet-stream", mimeType("a/b.unknownext"))
}
