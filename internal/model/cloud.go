// Package model provides the cloud chat-completion client.
// The API is OpenAI-compatible; one client instance serves one cost tier.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/errors"
)

// CloudConfig configures one cloud-tier client.
type CloudConfig struct {
	APIKey  string
	BaseURL string
	Model   string // provider model name for this tier
	Tier    Tier
	Timeout time.Duration
}

// CloudClient implements Model against an OpenAI-compatible chat API.
// Circuit breaking is owned by the routing engine; this client only retries
// transient faults within a single routed attempt.
type CloudClient struct {
	cfg         *CloudConfig
	client      *http.Client
	retryPolicy *errors.Policy
	log         zerolog.Logger
}

// NewCloudClient creates a cloud client for one tier.
func NewCloudClient(cfg *CloudConfig, log zerolog.Logger) *CloudClient {
	if cfg == nil {
		return nil
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &CloudClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryPolicy: errors.CloudPolicy(),
		log:         log.With().Str("tier", cfg.Tier.String()).Logger(),
	}
}

// Generate sends the request to the cloud API and returns the response.
func (c *CloudClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	if c == nil {
		return nil, errors.New(errors.CodeModelUnavailable, "cloud client not initialized", errors.CategorySystem)
	}

	if !c.IsAvailable() {
		return nil, errors.NewBuilder(errors.CodeModelUnavailable, "cloud API key not configured").
			System().
			WithSuggestion("Set the api_key entry in the [cloud] config section").
			Build()
	}

	start := time.Now()

	body := map[string]any{
		"model":    c.cfg.Model,
		"messages": buildMessages(req),
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeModelInvalidResponse, "failed to marshal request", errors.CategoryPermanent)
	}

	respBody, retryErr := errors.DoWithResult(ctx, c.retryPolicy, func() ([]byte, error) {
		return c.post(ctx, jsonBody)
	})
	if retryErr != nil {
		return nil, retryErr
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, errors.NewBuilder(errors.CodeModelParseError, "failed to parse API response").
			Permanent().
			Wrap(err).
			WithContext("response_body", string(respBody)).
			Build()
	}

	if len(chatResp.Choices) == 0 {
		return nil, errors.New(errors.CodeModelInvalidResponse, "API response contained no choices", errors.CategoryPermanent)
	}

	resp := &Response{
		Text:         chatResp.Choices[0].Message.Content,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
		Model:        chatResp.Model,
		Tier:         c.cfg.Tier,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	c.log.Debug().
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Int64("duration_ms", resp.DurationMs).
		Msg("cloud completion")

	return resp, nil
}

// post performs one HTTP round-trip and maps status codes to error categories.
func (c *CloudClient) post(ctx context.Context, jsonBody []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to create HTTP request", errors.CategoryTemporary)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	r, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "network request failed", errors.CategoryTemporary)
	}

	respBody, readErr := io.ReadAll(r.Body)
	r.Body.Close()
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.CodeNetworkUnavailable, "failed to read response body", errors.CategoryTemporary)
	}

	switch r.StatusCode {
	case http.StatusOK:
		return respBody, nil
	case http.StatusTooManyRequests:
		return nil, errors.RateLimit(errors.CodeModelRateLimit, "cloud API rate limited", parseRetryAfter(r.Header.Get("Retry-After")))
	case http.StatusUnauthorized:
		return nil, errors.NewBuilder(errors.CodeModelUnavailable, "invalid API key").
			User().
			WithSuggestion("Check the cloud API key in your config").
			Build()
	case http.StatusBadRequest:
		return nil, errors.NewBuilder(errors.CodeModelInvalidResponse, "bad request - check model name and parameters").
			Permanent().
			WithContext("response", string(respBody)).
			Build()
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return nil, errors.Temporary(errors.CodeModelUnavailable, fmt.Sprintf("API unavailable: %s", r.Status))
	default:
		return nil, errors.Temporary(errors.CodeModelUnavailable, fmt.Sprintf("API error (status %d): %s", r.StatusCode, string(respBody)))
	}
}

// buildMessages assembles the chat message list from the request parts.
func buildMessages(req *Request) []map[string]string {
	messages := []map[string]string{}

	system := req.System
	if req.Persona != "" {
		system = req.Persona + "\n\n" + system
	}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}

	prompt := req.Prompt
	if req.UserContext != "" {
		prompt = req.UserContext + "\n\n" + prompt
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	return messages
}

// IsAvailable checks if the client is configured.
func (c *CloudClient) IsAvailable() bool {
	return c != nil && c.cfg != nil && c.cfg.APIKey != ""
}

// Name returns the provider model name.
func (c *CloudClient) Name() string {
	if c.cfg != nil {
		return c.cfg.Model
	}
	return "cloud"
}

// Tier returns the cost tier this client serves.
func (c *CloudClient) Tier() Tier {
	return c.cfg.Tier
}

// Status returns the model status.
func (c *CloudClient) Status() *Status {
	return &Status{
		Name:      c.Name(),
		Available: c.IsAvailable(),
		Local:     false,
	}
}

// ============================================================
// Cloud API Types (OpenAI-compatible)
// ============================================================

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 5 * time.Second
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(secs) * time.Second
}
