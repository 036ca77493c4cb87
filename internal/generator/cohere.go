package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/roadmapper/internal/apperr"
)

const (
	defaultCohereURL   = "https://api.cohere.ai"
	defaultModel       = "command-xlarge-nightly"
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is quoted in errors.
	maxErrorBody = 512
)

// Cohere generates roadmaps with the Cohere generate endpoint.
type Cohere struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

var _ Generator = (*Cohere)(nil)

// CohereOption configures a Cohere client.
type CohereOption func(*Cohere)

// WithBaseURL points the client at a different host, e.g. a proxy or test server.
func WithBaseURL(url string) CohereOption {
	return func(c *Cohere) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the model name. Empty keeps the default.
func WithModel(model string) CohereOption {
	return func(c *Cohere) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens caps the generated length. Non-positive keeps the default.
func WithMaxTokens(n int) CohereOption {
	return func(c *Cohere) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature. Zero keeps the default.
func WithTemperature(t float64) CohereOption {
	return func(c *Cohere) {
		if t > 0 {
			c.temperature = t
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive keeps the default.
func WithTimeout(d time.Duration) CohereOption {
	return func(c *Cohere) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) CohereOption {
	return func(c *Cohere) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewCohere creates a Cohere client. apiKey is required.
func NewCohere(apiKey string, opts ...CohereOption) (*Cohere, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cohere: api key is required")
	}
	c := &Cohere{
		apiKey:      apiKey,
		baseURL:     defaultCohereURL,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		client:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type cohereRequest struct {
	Model            string  `json:"model"`
	Prompt           string  `json:"prompt"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty"`
}

type cohereResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

// Generate asks the model for a roadmap of topic and returns the trimmed text
// of the first generation.
func (c *Cohere) Generate(ctx context.Context, topic string) (string, error) {
	body, err := json.Marshal(cohereRequest{
		Model:       c.model,
		Prompt:      Prompt(topic),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        1.0,
	})
	if err != nil {
		return "", fmt.Errorf("cohere: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("cohere: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cohere: request: %w: %w", apperr.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("cohere: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(snippet)), apperr.ErrGeneration)
	}

	var out cohereResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cohere: decode response: %w: %w", apperr.ErrGeneration, err)
	}
	if len(out.Generations) == 0 {
		return "", fmt.Errorf("cohere: no generations: %w", apperr.ErrGeneration)
	}
	return strings.TrimSpace(out.Generations[0].Text), nil
}
