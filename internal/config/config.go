// Package config loads the per-environment YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the docquery configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Ranker    RankerConfig    `yaml:"ranker"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Assistant AssistantConfig `yaml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds document store settings.
type DatabaseConfig struct {
	URI              string `yaml:"uri"`
	Name             string `yaml:"name"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
	QueryTimeoutSec  int    `yaml:"query_timeout_sec"`
	Limit            int    `yaml:"limit"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxBatch   int    `yaml:"max_batch"`
	TimeoutSec int    `yaml:"timeout_sec"`
	IndexPath  string `yaml:"index_path"` // empty: index is rebuilt on every start

	// QueryInstruction is prepended to questions only, e.g. "search_query: ".
	QueryInstruction string `yaml:"query_instruction"`
}

// Enabled reports whether an embedding model is configured.
func (e EmbeddingConfig) Enabled() bool { return e.Model != "" }

// LLMConfig holds chat-completion provider settings.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	TimeoutSec  int           `yaml:"timeout_sec"`
	MaxAttempts int           `yaml:"max_attempts"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// Enabled reports whether a language model is configured.
func (l LLMConfig) Enabled() bool { return l.Model != "" }

// BreakerConfig holds circuit breaker settings for the LLM client.
type BreakerConfig struct {
	MinRequests      uint32  `yaml:"min_requests"`
	FailureThreshold float64 `yaml:"failure_threshold"`
	OpenTimeoutSec   int     `yaml:"open_timeout_sec"`
	IntervalSec      int     `yaml:"interval_sec"`
}

// CacheConfig holds the embedding cache (Redis/Valkey) settings.
type CacheConfig struct {
	Addrs    []string      `yaml:"addrs"` // empty disables the cache
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// RankerConfig holds relevance thresholds.
type RankerConfig struct {
	TopK        int     `yaml:"top_k"`
	FieldTopK   int     `yaml:"field_top_k"`
	MinTopScore float64 `yaml:"min_top_score"`
	MinScore    float64 `yaml:"min_score"`
}

// CompilerConfig holds rule compiler assumptions.
type CompilerConfig struct {
	// nil means "completed"; an explicit empty string disables the filter
	DefaultSalesStatus *string `yaml:"default_sales_status"`
	Limit              int     `yaml:"limit"`
}

// SalesStatus resolves DefaultSalesStatus.
func (c CompilerConfig) SalesStatus() string {
	if c.DefaultSalesStatus == nil {
		return defaultSalesStatus
	}
	return *c.DefaultSalesStatus
}

// AssistantConfig selects how questions are answered.
type AssistantConfig struct {
	Mode              string `yaml:"mode"` // auto, model, rules
	Templates         *bool  `yaml:"templates"`
	StrictModelErrors bool   `yaml:"strict_model_errors"`
}

// TemplatesEnabled resolves Templates, defaulting to true.
func (a AssistantConfig) TemplatesEnabled() bool {
	return a.Templates == nil || *a.Templates
}

const defaultSalesStatus = "completed"

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references and applies defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// model path: embed + chat completion + store round trip
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 64 << 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.QueryTimeoutSec <= 0 {
		c.Database.QueryTimeoutSec = 10
	}
	if c.Database.Limit <= 0 {
		c.Database.Limit = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.MaxBatch <= 0 {
		c.Embedding.MaxBatch = 64
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 512
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = 2
	}
	if c.LLM.Breaker.MinRequests == 0 {
		c.LLM.Breaker.MinRequests = 5
	}
	if c.LLM.Breaker.FailureThreshold <= 0 {
		c.LLM.Breaker.FailureThreshold = 0.6
	}
	if c.LLM.Breaker.OpenTimeoutSec <= 0 {
		c.LLM.Breaker.OpenTimeoutSec = 30
	}
	if c.LLM.Breaker.IntervalSec <= 0 {
		c.LLM.Breaker.IntervalSec = 60
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 7 * 24 * time.Hour
	}
	if c.Ranker.TopK <= 0 {
		c.Ranker.TopK = 3
	}
	if c.Ranker.FieldTopK <= 0 {
		c.Ranker.FieldTopK = 3
	}
	if c.Ranker.MinTopScore <= 0 {
		c.Ranker.MinTopScore = 0.3
	}
	if c.Ranker.MinScore <= 0 {
		c.Ranker.MinScore = 0.2
	}
	if c.Compiler.Limit <= 0 {
		c.Compiler.Limit = c.Database.Limit
	}
	if c.Assistant.Mode == "" {
		c.Assistant.Mode = "auto"
	}
}

// maxResultLimit caps documents returned per query.
const maxResultLimit = 10

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.URI == "" {
		return fmt.Errorf("database.uri is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.Limit > maxResultLimit {
		return fmt.Errorf("database.limit must be at most %d, got %d", maxResultLimit, c.Database.Limit)
	}
	if c.Compiler.Limit > maxResultLimit {
		return fmt.Errorf("compiler.limit must be at most %d, got %d", maxResultLimit, c.Compiler.Limit)
	}
	switch c.Assistant.Mode {
	case "auto", "rules":
	case "model":
		if !c.LLM.Enabled() || !c.Embedding.Enabled() {
			return fmt.Errorf("assistant.mode \"model\" requires llm.model and embedding.model")
		}
	default:
		return fmt.Errorf("assistant.mode must be \"auto\", \"model\" or \"rules\", got %q", c.Assistant.Mode)
	}
	if t := c.LLM.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", t)
	}
	if f := c.LLM.Breaker.FailureThreshold; f > 1 {
		return fmt.Errorf("llm.breaker.failure_threshold must be at most 1, got %v", f)
	}
	if c.Ranker.MinScore > c.Ranker.MinTopScore {
		return fmt.Errorf("ranker.min_score (%v) must not exceed ranker.min_top_score (%v)",
			c.Ranker.MinScore, c.Ranker.MinTopScore)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to this source file, for tests and `go run` from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
