/**
 * @description
 * Lightweight OpenRouter Chat Completions client.
 * Used by the oracle service to synthesize independent probability estimates.
 * A single failed round trip is reported to the caller, which falls back to
 * the deterministic strategy; there is no retry loop at this layer.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 */

package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kalshi-pulse/backend/internal/config"
	"github.com/kalshi-pulse/backend/internal/logger"
)

const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel     = "openai/gpt-4o-mini"
	requestTimeout   = 60 * time.Second
	defaultMaxTokens = 500
)

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func NewClient(cfg *config.Config) *Client {
	baseURL := strings.TrimSpace(cfg.Oracle.OpenRouterBaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Oracle.OpenRouterModel)
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		apiKey:  cfg.Oracle.OpenRouterAPIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Configured reports whether an API key is present. Running without one is a
// valid operating mode; the oracle then uses its deterministic strategy only.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Model returns the model name being used by this client
func (c *Client) Model() string {
	return c.model
}

// Estimate sends a chat completion request and returns the first choice content.
func (c *Client) Estimate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openrouter api key is not configured")
	}

	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return "", fmt.Errorf("user prompt is required")
	}

	payload := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   defaultMaxTokens,
		ResponseFormat: &ResponseFormat{
			Type: "json_object",
		},
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("openrouter response read failed: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("OpenRouter API error: %d - %s", resp.StatusCode, truncateForLog(string(respBody), 500))
		return "", fmt.Errorf("openrouter api returned status %d", resp.StatusCode)
	}

	var result ChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		logger.Error("Failed to decode OpenRouter response: %v | raw: %s", err, truncateForLog(string(respBody), 500))
		return "", fmt.Errorf("openrouter response decode failed: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openrouter")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openrouter response missing content (finish_reason: %s)", result.Choices[0].FinishReason)
	}

	return content, nil
}

func truncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "...(truncated)"
}
