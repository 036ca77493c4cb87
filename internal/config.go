package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/roadmapper/internal/generator"
	"github.com/starford/roadmapper/internal/parser"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Generator GeneratorConfig   `yaml:"generator"`
	Library   LibraryConfig     `yaml:"library"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Parser    ParserConfig      `yaml:"parser"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Parser.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GeneratorConfig selects the roadmap generator.
//
// With provider "cohere" an empty APIKey leaves generation disabled; every
// other operation keeps working. Provider "static" serves the contents of
// StaticFile for every topic.
type GeneratorConfig struct {
	Provider    string        `yaml:"provider"`
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	StaticFile  string        `yaml:"static_file"`
}

// Validate validates the generator configuration.
func (c *GeneratorConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = generator.ProviderCohere
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(generator.ProviderCohere, generator.ProviderStatic)),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(5.0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.StaticFile, validation.When(c.Provider == generator.ProviderStatic, validation.Required)),
	)
}

// Enabled reports whether a generator can be built from c.
func (c *GeneratorConfig) Enabled() bool {
	return c.Provider == generator.ProviderStatic || c.APIKey != ""
}

// Options converts c into generator options.
func (c *GeneratorConfig) Options() generator.Config {
	return generator.Config{
		Provider:    c.Provider,
		Endpoint:    c.Endpoint,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		StaticFile:  c.StaticFile,
	}
}

// LibraryConfig holds the path to the directory of roadmap text files.
type LibraryConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ParserConfig tunes how roadmap text is turned into trees.
type ParserConfig struct {
	MatchMode string `yaml:"match_mode"`
}

// Validate validates the parser configuration.
func (c *ParserConfig) Validate() error {
	if _, ok := parser.ParseMatchMode(c.MatchMode); !ok {
		return fmt.Errorf("parser: unknown match_mode %q (want suffix or exact)", c.MatchMode)
	}
	return nil
}

// Mode returns the configured match mode.
func (c *ParserConfig) Mode() parser.MatchMode {
	m, _ := parser.ParseMatchMode(c.MatchMode)
	return m
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Generator: GeneratorConfig{
			Provider: generator.ProviderCohere,
			Timeout:  60 * time.Second,
		},
		Library: LibraryConfig{
			Path:  "./library",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./roadmapper.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Parser: ParserConfig{
			MatchMode: parser.MatchSuffix.String(),
		},
	}
}
