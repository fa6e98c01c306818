package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docanalyser/internal/config"
	"docanalyser/internal/domain"
	"docanalyser/internal/llm"
	"docanalyser/internal/port"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"

	keyUsageTimeout = 10 * time.Second
)

// Client implements port.ChatCompleter and port.KeyUsageChecker against any
// OpenAI-compatible Chat Completions API.
type Client struct {
	provider  string
	apiKey    string
	model     string
	baseURL   string
	client    *http.Client
	keyClient *http.Client
}

// NewClient creates a client from a provider config. An empty base URL or
// model falls back to the provider's default.
func NewClient(cfg *config.LLMProviderConfig) *Client {
	return NewClientWithEndpoint(cfg, cfg.BaseURL)
}

// NewClientWithEndpoint creates a client pointing at a custom base URL (for testing).
func NewClientWithEndpoint(cfg *config.LLMProviderConfig, baseURL string) *Client {
	provider := cfg.Provider
	if provider == "" {
		provider = "openrouter"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL(provider)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel(provider)
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		provider:  provider,
		apiKey:    cfg.APIKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		keyClient: &http.Client{Timeout: keyUsageTimeout},
	}
}

// Factory adapts NewClient to llm.ProviderFactory.
func Factory(cfg *config.LLMProviderConfig) (port.ChatCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s provider: %w", cfg.Provider, domain.ErrMissingAPIKey)
	}
	return NewClient(cfg), nil
}

// Register adds the OpenAI-compatible providers to the llm registry.
func Register() {
	llm.RegisterProvider("openrouter", Factory)
	llm.RegisterProvider("openai", Factory)
}

func defaultBaseURL(provider string) string {
	if provider == "openai" {
		return OpenAIBaseURL
	}
	return OpenRouterBaseURL
}

func defaultModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o"
	}
	return "openai/gpt-4o"
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.model
}

// CompleteJSON sends one user message made of req.Blocks, constrained to
// req.Schema, and returns the first choice's message content.
func (c *Client) CompleteJSON(ctx context.Context, req port.ChatRequest) (string, error) {
	name := req.SchemaName
	if name == "" {
		name = "schema"
	}
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": req.Blocks,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   name,
				"strict": true,
				"schema": req.Schema,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling %s API: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &llm.APIError{Provider: c.provider, StatusCode: resp.StatusCode, Body: truncate(string(respBody), 500)}
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := llm.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", llm.NewRateLimitError(c.provider, apiErr, retryAfter)
		}
		return "", apiErr
	}

	return parseResponse(respBody)
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: unmarshaling response: %v (raw: %s)", domain.ErrMalformedResponse, err, truncate(string(body), 200))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", domain.ErrMalformedResponse)
	}

	if resp.Choices[0].FinishReason == "length" {
		return "", fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	if resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: empty message content", domain.ErrMalformedResponse)
	}
	return *resp.Choices[0].Message.Content, nil
}

// KeyUsage fetches usage and limits for the configured API key from {base}/key.
func (c *Client) KeyUsage(ctx context.Context) (map[string]any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/key", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.keyClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s key endpoint: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &llm.APIError{Provider: c.provider, StatusCode: resp.StatusCode, Body: truncate(string(respBody), 500)}
	}

	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: key usage: %v", domain.ErrMalformedResponse, err)
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
