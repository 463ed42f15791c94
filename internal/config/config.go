// Package config loads runtime configuration from the environment and
// an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// LLM backend
	Provider        Provider
	Model           string
	APIKey          string
	BaseURL         string
	OllamaHost      string
	AnthropicAPIKey string
	AWSRegion       string
	Temperature     float64
	MaxTokens       int

	// Pipeline defaults (overridable per-run via flags)
	SourcePath  string
	OutputDir   string
	Concurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// Defaults match the Moonshot setup the knowledge base was built with.
func Load() Config {
	return Config{
		Provider:        Provider(getEnv("MARKERDOCS_PROVIDER", string(ProviderOpenAI))),
		Model:           getEnv("MARKERDOCS_MODEL", "kimi-k2.5"),
		APIKey:          os.Getenv("MOONSHOT_API_KEY"),
		BaseURL:         getEnv("MARKERDOCS_BASE_URL", "https://api.moonshot.cn/v1"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		Temperature:     getEnvFloat("MARKERDOCS_TEMPERATURE", 1.0),
		MaxTokens:       getEnvInt("MARKERDOCS_MAX_TOKENS", 32000),

		SourcePath:  getEnv("MARKERDOCS_SOURCE", "marker.csv"),
		OutputDir:   getEnv("MARKERDOCS_OUTPUT_DIR", "docs/assets"),
		Concurrency: getEnvInt("MARKERDOCS_CONCURRENCY", 4),

		LogFile:  getEnv("MARKERDOCS_LOG_FILE", "/tmp/markerdocs.log"),
		LogLevel: parseLogLevel(getEnv("MARKERDOCS_LOG_LEVEL", "INFO")),
	}
}

// fileConfig mirrors the YAML config file. Only set fields override
// the environment-derived values.
type fileConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	OllamaHost  string   `yaml:"ollama_host"`
	AWSRegion   string   `yaml:"aws_region"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
	Source      string   `yaml:"source"`
	OutputDir   string   `yaml:"output_dir"`
	Concurrency *int     `yaml:"concurrency"`
	LogFile     string   `yaml:"log_file"`
	LogLevel    string   `yaml:"log_level"`
}

// ApplyFile overlays values from a YAML config file onto c.
// A missing file is not an error; a malformed one is.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Provider != "" {
		c.Provider = Provider(fc.Provider)
	}
	if fc.Model != "" {
		c.Model = fc.Model
	}
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.OllamaHost != "" {
		c.OllamaHost = fc.OllamaHost
	}
	if fc.AWSRegion != "" {
		c.AWSRegion = fc.AWSRegion
	}
	if fc.Temperature != nil {
		c.Temperature = *fc.Temperature
	}
	if fc.MaxTokens != nil {
		c.MaxTokens = *fc.MaxTokens
	}
	if fc.Source != "" {
		c.SourcePath = fc.Source
	}
	if fc.OutputDir != "" {
		c.OutputDir = fc.OutputDir
	}
	if fc.Concurrency != nil {
		c.Concurrency = *fc.Concurrency
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
