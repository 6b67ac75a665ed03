// Package model provides the on-device model adapter.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/errors"
)

// PathResolver reports whether the on-device model file is ready and where
// it lives. The download manager is the production implementation.
type PathResolver interface {
	ModelPath() (path string, ready bool)
}

// Runner executes a single completion against the on-device model.
type Runner interface {
	Complete(ctx context.Context, modelPath string, req *Request) (*Response, error)
}

// LocalConfig configures the local adapter.
type LocalConfig struct {
	Name      string // model identifier, e.g. "qwen-2.5-1.5b"
	MaxTokens int    // default output budget when the request has none
}

// LocalClient implements Model for the free on-device backend. It is a thin
// wrapper: resolve the model path, delegate to the runner, report
// success/failure. Availability tracks the acquisition state machine.
type LocalClient struct {
	cfg      *LocalConfig
	resolver PathResolver
	runner   Runner
	log      zerolog.Logger
}

// NewLocalClient creates the on-device adapter.
func NewLocalClient(cfg *LocalConfig, resolver PathResolver, runner Runner, log zerolog.Logger) *LocalClient {
	return &LocalClient{
		cfg:      cfg,
		resolver: resolver,
		runner:   runner,
		log:      log.With().Str("tier", TierLocal.String()).Logger(),
	}
}

// Generate runs one completion on the local model.
func (c *LocalClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	path, ready := c.resolver.ModelPath()
	if !ready {
		return nil, errors.New(errors.CodeModelFileMissing, "on-device model is not installed yet", errors.CategoryTemporary)
	}

	if req.MaxTokens == 0 && c.cfg.MaxTokens > 0 {
		clone := *req
		clone.MaxTokens = c.cfg.MaxTokens
		req = &clone
	}

	start := time.Now()
	resp, err := c.runner.Complete(ctx, path, req)
	if err != nil {
		c.log.Warn().Err(err).Msg("local inference failed")
		return nil, errors.Wrap(err, errors.CodeModelUnavailable, "local inference failed", errors.CategoryTemporary)
	}

	resp.Tier = TierLocal
	if resp.Model == "" {
		resp.Model = c.cfg.Name
	}
	if resp.DurationMs == 0 {
		resp.DurationMs = time.Since(start).Milliseconds()
	}
	return resp, nil
}

// IsAvailable reports whether the model file is installed.
func (c *LocalClient) IsAvailable() bool {
	if c == nil || c.resolver == nil {
		return false
	}
	_, ready := c.resolver.ModelPath()
	return ready
}

// Name returns the model identifier.
func (c *LocalClient) Name() string {
	return c.cfg.Name
}

// Tier returns TierLocal.
func (c *LocalClient) Tier() Tier {
	return TierLocal
}

// Status returns the model status.
func (c *LocalClient) Status() *Status {
	s := &Status{
		Name:      c.Name(),
		Available: c.IsAvailable(),
		Local:     true,
	}
	if !s.Available {
		s.Error = "model file not installed"
	}
	return s
}

// ============================================================
// llama.cpp server runner
// ============================================================

// LlamaServerRunner talks to a llama.cpp server that has the model file
// loaded. The model path is not sent on the wire; it gates availability only.
type LlamaServerRunner struct {
	BaseURL string
	Client  *http.Client
}

// NewLlamaServerRunner creates a runner against a llama.cpp /completion endpoint.
func NewLlamaServerRunner(baseURL string) *LlamaServerRunner {
	return &LlamaServerRunner{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Complete posts the prompt to the llama.cpp server.
func (r *LlamaServerRunner) Complete(ctx context.Context, _ string, req *Request) (*Response, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	body := map[string]any{
		"prompt":    prompt,
		"n_predict": req.MaxTokens,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/completion", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llama server returned status %d", resp.StatusCode)
	}

	var out struct {
		Content string `json:"content"`
		Timings struct {
			PromptN    int `json:"prompt_n"`
			PredictedN int `json:"predicted_n"`
		} `json:"timings"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}

	return &Response{
		Text:         out.Content,
		InputTokens:  out.Timings.PromptN,
		OutputTokens: out.Timings.PredictedN,
	}, nil
}
