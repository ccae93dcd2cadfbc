// Package config loads heracles settings from defaults, the JSON config
// file, .env files and HERACLES_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Scenario ScenarioConfig
	Session  SessionConfig
	Catalog  CatalogConfig
	Ollama   OllamaConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
	// APIToken guards the HTTP API. Empty disables auth.
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type ScenarioConfig struct {
	Path string
}

type SessionConfig struct {
	MaxSessions int
	MaxHops     int
}

// CatalogConfig configures the exercise catalog client. An empty BaseURL
// disables the catalog tools.
type CatalogConfig struct {
	BaseURL        string
	APIKey         string
	Language       string
	Timeout        time.Duration
	PageSize       int
	RequestsPerMin int
}

// Enabled reports whether enough is set to build a catalog client.
func (c CatalogConfig) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// OllamaConfig configures the LLM engine. An empty BaseURL disables it and
// agents fall back to their rule-based replies.
type OllamaConfig struct {
	BaseURL string
	Model   string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server:   ServerConfig{Port: 4100},
		Storage:  StorageConfig{DataDir: defaultDataDir()},
		Scenario: ScenarioConfig{Path: "eval/program_empty_default.json"},
		Session:  SessionConfig{MaxSessions: 256, MaxHops: 16},
		Catalog: CatalogConfig{
			Language:       "2",
			Timeout:        10 * time.Second,
			PageSize:       10,
			RequestsPerMin: 60,
		},
		Ollama: OllamaConfig{Model: "llama3.2"},
		Log:    LogConfig{Level: "info"},
	}
}

// dotenvFiles are loaded in order; godotenv never overrides a variable that
// is already set, so earlier files win over later ones.
var dotenvFiles = []string{".env.local", ".env"}

// LoadDotenv loads .env.local and .env from the working directory into the
// process environment. Missing files are skipped.
func LoadDotenv() error {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from the JSON config file at FilePath and
// HERACLES_* environment variables. Secrets are only read from the
// environment.
func Load() (Config, error) {
	return loadWith(newFileBackend(FilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("session.max_sessions must be positive, got %d", c.Session.MaxSessions))
	}
	if c.Session.MaxHops <= 0 {
		errs = append(errs, fmt.Errorf("session.max_hops must be positive, got %d", c.Session.MaxHops))
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout must be positive, got %s", c.Catalog.Timeout))
	}
	if c.Catalog.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("catalog.page_size must be positive, got %d", c.Catalog.PageSize))
	}
	if c.Catalog.RequestsPerMin <= 0 {
		errs = append(errs, fmt.Errorf("catalog.requests_per_min must be positive, got %d", c.Catalog.RequestsPerMin))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
