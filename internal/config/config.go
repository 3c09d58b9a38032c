// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.agentlab/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider and model selection, temperature, max tokens, embedder
//   - Storage: PostgreSQL connection for the vector memory (see storage.go)
//   - Tools: SearXNG search and web fetch settings (see tools.go)
//   - Research: arXiv / Semantic Scholar settings (see tools.go)
//   - Browser: Chrome automation settings (see tools.go)
//
// Security: sensitive data (passwords, API keys) is never logged; the config
// directory uses 0750 permissions.
// Validation: range checks in validation.go with clear sentinel errors.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidTokenBudget indicates the context token budget is out of range.
	ErrInvalidTokenBudget = errors.New("invalid context token budget")

	// ErrInvalidMaxToolSteps indicates the tool step limit is out of range.
	ErrInvalidMaxToolSteps = errors.New("invalid max tool steps")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the pgvector schema uses 768 (memory.VectorDimension).
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultMaxContextTokens is the default short-term memory token budget.
	DefaultMaxContextTokens = 4000

	// DefaultMaxToolSteps is the default cap on agent tool-calling turns.
	DefaultMaxToolSteps = 3

	// DefaultMaxExecutorSteps is the default hard cap on executor iterations.
	DefaultMaxExecutorSteps = 12
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Agent behavior
	MaxToolSteps     int `mapstructure:"max_tool_steps" json:"max_tool_steps"`
	MaxExecutorSteps int `mapstructure:"max_executor_steps" json:"max_executor_steps"`
	MaxContextTokens int `mapstructure:"max_context_tokens" json:"max_context_tokens"`
	MemoryTopK       int `mapstructure:"memory_top_k" json:"memory_top_k"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Tool configuration (see tools.go for type definitions)
	SearXNG  SearXNGConfig  `mapstructure:"searxng" json:"searxng"`
	WebFetch WebFetchConfig `mapstructure:"web_fetch" json:"web_fetch"`

	// Research pipeline configuration
	Research ResearchConfig `mapstructure:"research" json:"research"`

	// Browser automation configuration
	Browser BrowserConfig `mapstructure:"browser" json:"browser"`

	// Serve mode configuration
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Rate limiter burst per IP (0 = default)
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".agentlab")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has highest priority for PostgreSQL config
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Agent defaults
	viper.SetDefault("max_tool_steps", DefaultMaxToolSteps)
	viper.SetDefault("max_executor_steps", DefaultMaxExecutorSteps)
	viper.SetDefault("max_context_tokens", DefaultMaxContextTokens)
	viper.SetDefault("memory_top_k", 3)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "agentlab")
	viper.SetDefault("postgres_password", "agentlab_dev_password")
	viper.SetDefault("postgres_db_name", "agentlab")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)

	// SearXNG defaults
	viper.SetDefault("searxng.base_url", "http://localhost:8888")
	viper.SetDefault("searxng.max_results", 5)

	// Web fetch defaults
	viper.SetDefault("web_fetch.timeout_ms", 30000)
	viper.SetDefault("web_fetch.max_chars", 4000)

	// Research defaults
	viper.SetDefault("research.arxiv_base_url", "https://export.arxiv.org/api/query")
	viper.SetDefault("research.semantic_scholar_base_url", "https://api.semanticscholar.org/graph/v1")
	viper.SetDefault("research.chunk_chars", 3000)

	// Browser defaults
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.navigation_timeout_ms", 15000)
	viper.SetDefault("browser.screenshot_dir", "artifacts/web")

	// CORS defaults
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})

	// Proxy trust (default false — safe for direct exposure)
	viper.SetDefault("trust_proxy", false)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets:
//  1. GEMINI_API_KEY — read directly by Genkit (not via Viper), checked in Validate()
//  2. OPENAI_API_KEY — read directly by the Genkit OpenAI plugin
//  3. SEMANTIC_SCHOLAR_API_KEY — optional, raises Semantic Scholar rate limits
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "AGENTLAB_PROVIDER")
	mustBind("model_name", "AGENTLAB_MODEL_NAME")
	mustBind("ollama_host", "AGENTLAB_OLLAMA_HOST")

	mustBind("searxng.base_url", "AGENTLAB_SEARXNG_URL")
	mustBind("research.semantic_scholar_api_key", "SEMANTIC_SCHOLAR_API_KEY")

	mustBind("cors_origins", "AGENTLAB_CORS_ORIGINS")
	mustBind("trust_proxy", "AGENTLAB_TRUST_PROXY")
	mustBind("rate_burst", "AGENTLAB_RATE_BURST")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against the
// real secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked to prevent substring matching;
// longer secrets keep the first and last 2 chars for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - Research.SemanticScholarAPIKey (via ResearchConfig.MarshalJSON)
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
