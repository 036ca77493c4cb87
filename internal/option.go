package internal

import (
	"io"

	"github.com/starford/roadmapper/internal/generator"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	generator generator.Generator
	logOutput io.Writer
	version   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGenerator overrides the generator built from the configuration.
func WithGenerator(g generator.Generator) Option {
	return func(a *application) {
		a.generator = g
	}
}

// WithLogOutput sets where structured logs are written. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
