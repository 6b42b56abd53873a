// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps an OpenAI-compatible chat endpoint (OpenAI, Ollama,
// vLLM and friends) for the two judgement calls the pipeline makes: does a
// paper match the hunt description, and what is its abstract in Chinese.
// Both calls degrade instead of failing the run.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// defaultAPIKey is sent when none is configured; local servers such as
// Ollama accept any non-empty key.
const defaultAPIKey = "ollama"

// Completer returns the model's answer to a single user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client calls POST {BaseURL}/chat/completions.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string
	HTTP    *http.Client

	// MaxRetries bounds retries on 429/503; 0 selects httputil's default.
	MaxRetries int
}

// NewClient builds a client from configuration.
func NewClient(cfg types.LLMConfig, httpCfg types.HTTPConfig) *Client {
	key := cfg.APIKey
	if key == "" {
		key = defaultAPIKey
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Model:      cfg.Model,
		APIKey:     key,
		HTTP:       &http.Client{Timeout: httpCfg.Timeout},
		MaxRetries: cfg.LLMRetries,
	}
}

// Validate reports configuration that makes every call fail.
func (c *Client) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("llm: base_url is not set")
	case c.Model == "":
		return fmt.Errorf("llm: model is not set")
	}
	return nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, msg)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes <think>…</think> reasoning blocks some models emit.
func StripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}
