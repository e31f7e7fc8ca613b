// Package config loads process settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Model providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Default model ids per provider, used when LLM_MODEL is unset.
const (
	DefaultOpenRouterModel = "x-ai/grok-4.1-fast"
	DefaultOllamaModel     = "llama3.1:8b"
)

// Config holds every setting the services read.
type Config struct {
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password"`

	LLMProvider      string        `mapstructure:"llm_provider"`
	OpenRouterAPIKey string        `mapstructure:"openrouter_api_key"`
	OpenRouterURL    string        `mapstructure:"openrouter_url"`
	LLMModel         string        `mapstructure:"llm_model"`
	OllamaURL        string        `mapstructure:"ollama_url"`
	LLMTimeout       time.Duration `mapstructure:"llm_timeout"`
	LLMRate          float64       `mapstructure:"llm_rate"`

	Port       string `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
	NATSURL    string `mapstructure:"nats_url"`
	StaticDir  string `mapstructure:"static_dir"`
	LogLevel   string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"neo4j_uri":          "bolt://localhost:7687",
	"neo4j_user":         "neo4j",
	"neo4j_password":     "",
	"llm_provider":       ProviderOpenRouter,
	"openrouter_api_key": "",
	"openrouter_url":     "https://openrouter.ai/api/v1",
	"llm_model":          "",
	"ollama_url":         "http://localhost:11434",
	"llm_timeout":        "20s",
	"llm_rate":           2.0,
	"port":               "5000",
	"cors_origin":        "*",
	"nats_url":           "",
	"static_dir":         "static",
	"log_level":          "info",
}

// Load reads settings from envFile (skipped when empty or missing) and the
// process environment; the environment wins.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if strings.TrimSpace(cfg.LLMModel) == "" {
		cfg.LLMModel = DefaultModel(cfg.LLMProvider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors. A missing API key is not
// an error: the model stages then fall back deterministically.
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("config: NEO4J_URI is required")
	}
	switch c.LLMProvider {
	case ProviderOpenRouter, ProviderOllama:
	default:
		return fmt.Errorf("config: LLM_PROVIDER %q must be %q or %q", c.LLMProvider, ProviderOpenRouter, ProviderOllama)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("config: LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if c.LLMRate < 0 {
		return fmt.Errorf("config: LLM_RATE must not be negative")
	}
	return nil
}

// DefaultModel returns the model id used for provider when none is set.
func DefaultModel(provider string) string {
	if provider == ProviderOllama {
		return DefaultOllamaModel
	}
	return DefaultOpenRouterModel
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
