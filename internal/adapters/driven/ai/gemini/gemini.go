// Package gemini provides extraction and summarisation using the Google
// Gemini API. Files are sent inline and replies are constrained by a
// response schema.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/ratelimit"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driven/ai/schema"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// Ensure Client implements the interfaces.
var (
	_ driven.Extractor  = (*Client)(nil)
	_ driven.Summariser = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultModel = "gemini-2.5-flash"

	// MaxInlineBytes is the largest file sent inline with a request.
	MaxInlineBytes = 20 << 20

	extractTemperature = 0.0
	summaryTemperature = 0.3
)

// Config holds configuration for the Gemini client.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the model to use (default: gemini-2.5-flash).
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Limiter throttles requests; nil disables throttling.
	Limiter *ratelimit.Limiter
}

// generator is the subset of the genai models API the client uses.
type generator interface {
	GenerateContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client implements extraction and summarisation against Gemini.
type Client struct {
	models  generator
	model   string
	limiter *ratelimit.Limiter
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: initialising client: %w", err)
	}

	return newClient(client.Models, cfg), nil
}

func newClient(models generator, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Client{
		models:  models,
		model:   cfg.Model,
		limiter: cfg.Limiter,
	}
}

// ExtractFile sends the original file inline with the schema.
func (c *Client) ExtractFile(ctx context.Context, path string, s driven.Schema) (*driven.ExtractResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if info.Size() > MaxInlineBytes {
		return nil, fmt.Errorf("gemini: %s is %d bytes: %w", filepath.Base(path), info.Size(), domain.ErrDocumentTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	part := genai.NewPartFromBytes(data, mimeType(path))
	return c.extract(ctx, part, s)
}

// ExtractText sends parsed text with the schema.
func (c *Client) ExtractText(ctx context.Context, text string, s driven.Schema) (*driven.ExtractResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: %w: no text", domain.ErrEmptyResponse)
	}
	return c.extract(ctx, genai.NewPartFromText(text), s)
}

func (c *Client) extract(ctx context.Context, doc *genai.Part, s driven.Schema) (*driven.ExtractResult, error) {
	validator, err := schema.NewValidator(s)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w: %w", domain.ErrInvalidConfig, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(schema.Instructions(s)),
			doc,
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(extractTemperature)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(s),
	}

	text, err := c.generate(ctx, contents, cfg)
	if err != nil {
		return nil, err
	}

	response, err := validator.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &driven.ExtractResult{Response: response, Model: c.model}, nil
}

// Summarise returns the model's reply to a summary prompt.
func (c *Client) Summarise(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(summaryTemperature)),
	}

	text, err := c.generate(ctx, contents, cfg)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("gemini: %w", domain.ErrEmptyResponse)
	}
	return text, nil
}

func (c *Client) generate(
	ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig,
) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		if isRateLimited(err) {
			c.limiter.Backoff(0)
		}
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini: %w", domain.ErrEmptyResponse)
	}
	return resp.Text(), nil
}

// ModelName returns the name of the model being used.
func (c *Client) ModelName() string {
	return c.model
}

// Close releases resources. The genai client holds nothing that needs
// explicit cleanup.
func (c *Client) Close() error {
	return nil
}

// ResponseSchema converts an extraction schema to a Gemini response schema,
// keeping the field order.
func ResponseSchema(s driven.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s)),
	}
	for _, f := range s {
		prop := &genai.Schema{Type: genai.TypeString, Description: f.Description}
		if f.Array {
			prop = &genai.Schema{
				Type:        genai.TypeArray,
				Description: f.Description,
				Items:       &genai.Schema{Type: genai.TypeString},
			}
		}
		out.Properties[f.Name] = prop
		out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
	}
	return out
}

// mimeType returns the MIME type Gemini expects for a staged file.
func mimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return "application/pdf"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "application/octet-stream"
}

// isRateLimited reports a quota rejection from the API.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

