package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"trialmetrics/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Registry RegistryConfig
	AI       AIConfig
	Analysis AnalysisConfig
	Summary  SummaryConfig
	LogLevel string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// RegistryConfig holds the trial registry API client settings
type RegistryConfig struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// AIConfig holds LLM settings for the narrative summary. An empty key
// disables the LLM path and summaries fall back to the template.
type AIConfig struct {
	OpenAIKey   string
	OpenAIModel string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Enabled reports whether an API key is configured.
func (c AIConfig) Enabled() bool {
	return strings.TrimSpace(c.OpenAIKey) != ""
}

// AnalysisConfig holds the defaults applied when a request omits a parameter
type AnalysisConfig struct {
	EffectSize      float64
	Alpha           float64
	CostScenario    string
	ConfidenceLevel float64
	ForecastHorizon int     // days
	MonthsElapsed   float64 // budget model months when the caller supplies none
}

// SummaryConfig holds narrative cache settings
type SummaryConfig struct {
	CacheTTL time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server:   *loadServerConfig(),
		Registry: *loadRegistryConfig(),
		AI:       *loadAIConfig(),
		Analysis: *loadAnalysisConfig(),
		Summary:  *loadSummaryConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return cfg, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		BaseURL:  getEnvOrDefault("REGISTRY_BASE_URL", "https://clinicaltrials.gov/api/v2/studies"),
		Timeout:  getEnvDurationOrDefault("REGISTRY_TIMEOUT", 30*time.Second),
		PageSize: getEnvIntOrDefault("REGISTRY_PAGE_SIZE", 20),
	}
}

func loadAIConfig() *AIConfig {
	return &AIConfig{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: getEnvOrDefault("LLM_MODEL", "gpt-4.1-nano"),
		BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 500),
		Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.7),
		Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		EffectSize:      getEnvFloatOrDefault("DEFAULT_EFFECT_SIZE", 0.5),
		Alpha:           getEnvFloatOrDefault("DEFAULT_ALPHA", 0.05),
		CostScenario:    getEnvOrDefault("DEFAULT_COST_SCENARIO", "median"),
		ConfidenceLevel: getEnvFloatOrDefault("DEFAULT_CONFIDENCE_LEVEL", 0.95),
		ForecastHorizon: getEnvIntOrDefault("FORECAST_HORIZON_DAYS", 365),
		MonthsElapsed:   getEnvFloatOrDefault("DEFAULT_MONTHS_ELAPSED", 6),
	}
}

func loadSummaryConfig() *SummaryConfig {
	return &SummaryConfig{
		CacheTTL: getEnvDurationOrDefault("SUMMARY_CACHE_TTL", time.Hour),
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if cfg.Registry.BaseURL == "" {
		return errors.ConfigInvalid("registry base URL is required")
	}
	if cfg.Registry.PageSize <= 0 || cfg.Registry.PageSize > 1000 {
		return errors.ConfigInvalid("REGISTRY_PAGE_SIZE must be in [1, 1000]")
	}
	a := cfg.Analysis
	if a.EffectSize <= 0 {
		return errors.ConfigInvalid("DEFAULT_EFFECT_SIZE must be positive")
	}
	if a.Alpha <= 0 || a.Alpha >= 1 {
		return errors.ConfigInvalid("DEFAULT_ALPHA must be in (0, 1)")
	}
	if a.ConfidenceLevel <= 0 || a.ConfidenceLevel >= 1 {
		return errors.ConfigInvalid("DEFAULT_CONFIDENCE_LEVEL must be in (0, 1)")
	}
	if a.ForecastHorizon <= 0 {
		return errors.ConfigInvalid("FORECAST_HORIZON_DAYS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
