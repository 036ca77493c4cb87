// Package generator produces raw roadmap text for a topic.
package generator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/starford/roadmapper/internal/apperr"
)

// Providers accepted by New.
const (
	ProviderCohere = "cohere"
	ProviderStatic = "static"
)

// Generator turns a topic into bar-delimited roadmap text.
type Generator interface {
	Generate(ctx context.Context, topic string) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, topic string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, topic string) (string, error) {
	return f(ctx, topic)
}

// Static returns the same text for every topic.
type Static struct {
	Text string
}

// Generate returns s.Text, or an error when it is blank.
func (s Static) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return "", fmt.Errorf("static generator: empty text: %w", apperr.ErrGeneration)
	}
	return text, nil
}

// Config selects and tunes a Generator.
type Config struct {
	Provider    string
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	StaticFile  string
}

// New builds the Generator named by cfg.Provider.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderStatic:
		data, err := os.ReadFile(cfg.StaticFile)
		if err != nil {
			return nil, fmt.Errorf("static generator: %w", err)
		}
		return Static{Text: string(data)}, nil

	case ProviderCohere, "":
		opts := []CohereOption{
			WithModel(cfg.Model),
			WithMaxTokens(cfg.MaxTokens),
			WithTemperature(cfg.Temperature),
			WithTimeout(cfg.Timeout),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, WithBaseURL(cfg.Endpoint))
		}
		return NewCohere(cfg.APIKey, opts...)
	}
	return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
}
