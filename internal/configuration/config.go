package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// Config represents the application configuration
type Config struct {
	LLM      LLMConfig      `toml:"llm" yaml:"llm"`
	Agent    AgentConfig    `toml:"agent" yaml:"agent"`
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Nouns    NounsConfig    `toml:"nouns" yaml:"nouns"`
}

type LLMConfig struct {
	Provider       string `toml:"provider" yaml:"provider"`
	OpenAIKey      string `toml:"openai_api_key" yaml:"openai_api_key"`
	AnthropicKey   string `toml:"anthropic_api_key" yaml:"anthropic_api_key"`
	GeminiKey      string `toml:"gemini_api_key" yaml:"gemini_api_key"`
	OpenAIModel    string `toml:"openai_model" yaml:"openai_model"`
	AnthropicModel string `toml:"anthropic_model" yaml:"anthropic_model"`
	GeminiModel    string `toml:"gemini_model" yaml:"gemini_model"`
	OllamaHost     string `toml:"ollama_host" yaml:"ollama_host"`
	OllamaModel    string `toml:"ollama_model" yaml:"ollama_model"`
	CheckerModel   string `toml:"checker_model" yaml:"checker_model"`
	EmbeddingModel string `toml:"embedding_model" yaml:"embedding_model"`
	Timeout        string `toml:"timeout" yaml:"timeout"`
	MaxRetries     int    `toml:"max_retries" yaml:"max_retries"`
}

type AgentConfig struct {
	MaxIterations int  `toml:"max_iterations" yaml:"max_iterations"`
	ResultLimit   int  `toml:"result_limit" yaml:"result_limit"`
	RequireSchema bool `toml:"require_schema" yaml:"require_schema"`
	Debug         bool `toml:"debug" yaml:"debug"`
}

type DatabaseConfig struct {
	Path       string `toml:"path" yaml:"path"`
	Dialect    string `toml:"dialect" yaml:"dialect"`
	ReadOnly   bool   `toml:"read_only" yaml:"read_only"`
	MaxRows    int    `toml:"max_rows" yaml:"max_rows"`
	SampleRows int    `toml:"sample_rows" yaml:"sample_rows"`
}

type NounsConfig struct {
	Queries   []string `toml:"queries" yaml:"queries"`
	CachePath string   `toml:"cache_path" yaml:"cache_path"`
	TopK      int      `toml:"top_k" yaml:"top_k"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "openai",
			Timeout:    "120s",
			MaxRetries: 3,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			ResultLimit:   5,
		},
		Database: DatabaseConfig{
			Path:       "chinook.db",
			Dialect:    "SQLite",
			ReadOnly:   true,
			MaxRows:    100,
			SampleRows: 3,
		},
		Nouns: NounsConfig{
			TopK: 5,
		},
	}
}

// SearchPaths lists the config file locations in lookup order
func SearchPaths() []string {
	home := os.Getenv("HOME")
	var paths []string
	for _, dir := range []string{
		// Current directory (for development)
		".",
		// User config (XDG)
		filepath.Join(home, ".config", "sqlagent"),
		// System-wide config
		"/etc/sqlagent",
	} {
		paths = append(paths,
			filepath.Join(dir, "config.toml"),
			filepath.Join(dir, "config.yaml"),
		)
	}
	return paths
}

// LoadConfig loads configuration from file with fallback to defaults.
// The returned path is empty when no file was found.
func LoadConfig() (*Config, string, error) {
	// Credentials may live in a local .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to load .env: %w", err)
	}

	config := DefaultConfig()

	var loadedPath string
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := DecodeFile(path, config); err != nil {
				return nil, "", err
			}
			loadedPath = path
			break
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, "", err
	}
	return config, loadedPath, nil
}

// DecodeFile decodes a TOML or YAML file on top of config
func DecodeFile(path string, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, config); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with environment variables if set
func (c *Config) ApplyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.OpenAIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.AnthropicKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiKey = key
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if db := os.Getenv("SQLAGENT_DB"); db != "" {
		c.Database.Path = db
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		c.Agent.Debug = true
	}
}

// Validate rejects settings the agent cannot run with
func (c *Config) Validate() error {
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.ResultLimit <= 0 {
		return fmt.Errorf("agent.result_limit must be positive, got %d", c.Agent.ResultLimit)
	}
	if c.Database.MaxRows <= 0 {
		return fmt.Errorf("database.max_rows must be positive, got %d", c.Database.MaxRows)
	}
	if c.Database.SampleRows < 0 {
		return fmt.Errorf("database.sample_rows must not be negative, got %d", c.Database.SampleRows)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	return nil
}

// RequestTimeout parses llm.timeout, zero meaning no per-call timeout
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	return d, nil
}
