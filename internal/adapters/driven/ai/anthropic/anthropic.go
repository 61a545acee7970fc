// Package anthropic provides extraction and summarisation using the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

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
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-5"
	DefaultTimeout = 120 * time.Second

	// MaxDocumentBytes is the largest file sent as a document block.
	MaxDocumentBytes = 32 << 20

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	extractMaxTokens = 2048
	summaryMaxTokens = 512
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Limiter throttles requests; nil disables throttling.
	Limiter *ratelimit.Limiter
}

// Client implements extraction and summarisation against Anthropic.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	limiter *ratelimit.Limiter
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is a text or document block.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *blockSource `json:"source,omitempty"`
}

type blockSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates an Anthropic client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		limiter: cfg.Limiter,
	}, nil
}

// ExtractFile sends the staged PDF as a base64 document block.
func (c *Client) ExtractFile(ctx context.Context, path string, s driven.Schema) (*driven.ExtractResult, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return nil, fmt.Errorf("anthropic: %w: %s", domain.ErrUnsupportedType, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	if info.Size() > MaxDocumentBytes {
		return nil, fmt.Errorf("anthropic: %s is %d bytes: %w", filepath.Base(path), info.Size(), domain.ErrDocumentTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	doc := contentBlock{
		Type: "document",
		Source: &blockSource{
			Type:      "base64",
			MediaType: "application/pdf",
			Data:      base64.StdEncoding.EncodeToString(data),
		},
	}
	return c.extract(ctx, doc, s)
}

// ExtractText sends parsed text with the schema instructions.
func (c *Client) ExtractText(ctx context.Context, text string, s driven.Schema) (*driven.ExtractResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("anthropic: %w: no text", domain.ErrEmptyResponse)
	}
	return c.extract(ctx, contentBlock{Type: "text", Text: text}, s)
}

func (c *Client) extract(ctx context.Context, doc contentBlock, s driven.Schema) (*driven.ExtractResult, error) {
	validator, err := schema.NewValidator(s)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w: %w", domain.ErrInvalidConfig, err)
	}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: extractMaxTokens,
		System:    schema.Instructions(s),
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{doc},
		}},
	}

	text, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	response, err := validator.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return &driven.ExtractResult{Response: response, Model: c.model}, nil
}

// Summarise returns the model's reply to a summary prompt.
func (c *Client) Summarise(ctx context.Context, prompt string) (string, error) {
	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   summaryMaxTokens,
		Temperature: 0.3,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		}},
	}

	text, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("anthropic: %w", domain.ErrEmptyResponse)
	}
	return text, nil
}

// send posts a messages request and concatenates the text blocks of the reply.
func (c *Client) send(ctx context.Context, reqBody messagesRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Backoff(retryAfter(resp.Header.Get("retry-after")))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("anthropic: %w: %w", domain.ErrMalformedResponse, err)
	}
	if msgResp.Error != nil {
		return "", fmt.Errorf("anthropic: %s: %s", msgResp.Error.Type, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}

// ModelName returns the name of the model being used.
func (c *Client) ModelName() string {
	return c.model
}

// Ping validates the API key against the /v1/models endpoint without
// running inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: create ping request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// retryAfter parses a retry-after header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
