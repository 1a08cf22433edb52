package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for datachat-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Target datasource (the database users ask questions about)
	Datasource DatasourceConfig `yaml:"datasource"`

	// Redis cache tier (optional; empty host disables it)
	Redis RedisConfig `yaml:"redis"`

	// Completion service configuration
	LLM LLMConfig `yaml:"llm"`

	// Schema analysis and caching behavior
	Analyzer AnalyzerConfig `yaml:"analyzer"`
}

// DatasourceConfig holds the target database connection settings.
type DatasourceConfig struct {
	Driver   string `yaml:"driver" env:"DATASOURCE_DRIVER" env-default:"mysql"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:"root"`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:"db"`
	// QueryTimeoutSeconds bounds each query execution.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"DATASOURCE_QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// RedisConfig holds the external cache tier settings.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// TimeoutSeconds bounds each completion call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"30"`
	// MaxTokens bounds completion output length for SQL generation.
	MaxTokens int `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"500"`
}

// AnalyzerConfig holds schema-relevance and caching behavior.
type AnalyzerConfig struct {
	// BusinessTermsPath points at the business terms YAML resource.
	BusinessTermsPath string `yaml:"business_terms_path" env:"BUSINESS_TERMS_PATH" env-default:"business_terms.yaml"`
	// FuzzyThreshold is the 0-100 similarity ratio a question word must
	// reach to count as a keyword match.
	FuzzyThreshold int `yaml:"fuzzy_threshold" env:"FUZZY_THRESHOLD" env-default:"75"`
	// SchemaTTLMinutes is how long a cached schema snapshot stays valid.
	SchemaTTLMinutes int `yaml:"schema_ttl_minutes" env:"SCHEMA_TTL_MINUTES" env-default:"60"`
	// SQLCacheTTLSeconds is how long validated generated SQL is cached.
	SQLCacheTTLSeconds int `yaml:"sql_cache_ttl_seconds" env:"SQL_CACHE_TTL_SECONDS" env-default:"3600"`
	// ResultCacheTTLSeconds is how long query results are cached.
	ResultCacheTTLSeconds int `yaml:"result_cache_ttl_seconds" env:"RESULT_CACHE_TTL_SECONDS" env-default:"600"`
	// SampleRows caps representative sample rows fetched per table.
	SampleRows int `yaml:"sample_rows" env:"SAMPLE_ROWS" env-default:"2"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (DATASOURCE_PASSWORD, REDIS_PASSWORD, LLM_API_KEY)
// must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// A missing config.yaml is fine for env-only deployments.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
		cfg.Version = version
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Datasource.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported datasource driver %q", c.Datasource.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Analyzer.FuzzyThreshold < 0 || c.Analyzer.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy_threshold must be within 0-100, got %d", c.Analyzer.FuzzyThreshold)
	}
	return nil
}
