package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/longregen/argo/internal/domain"
)

// Config holds all configuration for Argo. It is loaded once at startup and
// treated as frozen afterwards.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Memory    MemoryConfig    `json:"memory"`
	Tools     ToolsConfig     `json:"tools"`
}

// LLMConfig holds the chat-completion transport configuration.
type LLMConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	Family         string `json:"family"`          // "xml" or "json" tool-call dialect
	TimeoutSeconds int    `json:"timeout_seconds"` // per LLM call
}

// EmbeddingConfig holds the embeddings endpoint configuration.
type EmbeddingConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	AuthToken   string   `json:"auth_token"` // optional bearer token
	CORSOrigins []string `json:"cors_origins"`
}

// MemoryConfig tunes context assembly and summarization.
type MemoryConfig struct {
	ShortTermMessages int  `json:"short_term_messages"` // K, short-term buffer size
	SummaryInterval   int  `json:"summary_interval"`    // N, messages between summary regenerations
	TopPerLayer       int  `json:"top_per_layer"`       // M, chunks retrieved per layer
	ExtractOnIngest   bool `json:"extract_on_ingest"`   // run fact extraction after ingest turns
}

// ToolsConfig tunes tool execution.
type ToolsConfig struct {
	MaxParallel        int `json:"max_parallel"`         // bounded batch concurrency
	WebTimeoutSeconds  int `json:"web_timeout_seconds"`  // per web tool run
	MemTimeoutSeconds  int `json:"mem_timeout_seconds"`  // per memory tool run
	TurnTimeoutSeconds int `json:"turn_timeout_seconds"` // per-turn wall clock
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:            "http://localhost:8000/v1",
			APIKey:         "",
			Model:          "Qwen/Qwen3-8B-AWQ",
			Family:         "xml",
			TimeoutSeconds: 120,
		},
		Embedding: EmbeddingConfig{
			URL:        "http://localhost:11434/v1",
			APIKey:     "",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Database: DatabaseConfig{
			PostgresURL: "postgres://localhost:5432/argo",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Memory: MemoryConfig{
			ShortTermMessages: 6,
			SummaryInterval:   20,
			TopPerLayer:       5,
			ExtractOnIngest:   true,
		},
		Tools: ToolsConfig{
			MaxParallel:        4,
			WebTimeoutSeconds:  20,
			MemTimeoutSeconds:  5,
			TurnTimeoutSeconds: 300,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from the config file and environment overrides.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("ARGO_LLM_URL", &cfg.LLM.URL)
	envString("ARGO_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("ARGO_LLM_MODEL", &cfg.LLM.Model)
	envString("ARGO_LLM_FAMILY", &cfg.LLM.Family)
	envInt("ARGO_LLM_TIMEOUT", &cfg.LLM.TimeoutSeconds)

	envString("ARGO_EMBEDDING_URL", &cfg.Embedding.URL)
	envString("ARGO_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("ARGO_EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("ARGO_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)

	envString("ARGO_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("ARGO_SERVER_HOST", &cfg.Server.Host)
	envInt("ARGO_SERVER_PORT", &cfg.Server.Port)
	envString("ARGO_AUTH_TOKEN", &cfg.Server.AuthToken)
	envStringSlice("ARGO_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	envInt("ARGO_SHORT_TERM_MESSAGES", &cfg.Memory.ShortTermMessages)
	envInt("ARGO_SUMMARY_INTERVAL", &cfg.Memory.SummaryInterval)
	envInt("ARGO_TOP_PER_LAYER", &cfg.Memory.TopPerLayer)
	envBool("ARGO_EXTRACT_ON_INGEST", &cfg.Memory.ExtractOnIngest)

	envInt("ARGO_TOOLS_MAX_PARALLEL", &cfg.Tools.MaxParallel)
	envInt("ARGO_TOOLS_WEB_TIMEOUT", &cfg.Tools.WebTimeoutSeconds)
	envInt("ARGO_TOOLS_MEM_TIMEOUT", &cfg.Tools.MemTimeoutSeconds)
	envInt("ARGO_TURN_TIMEOUT", &cfg.Tools.TurnTimeoutSeconds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}
	if c.LLM.Family != "xml" && c.LLM.Family != "json" {
		errs = append(errs, "LLM family must be 'xml' or 'json'")
	}
	if c.LLM.TimeoutSeconds < 1 {
		errs = append(errs, "LLM timeout must be positive")
	}

	if c.Embedding.URL != "" {
		if !isValidURL(c.Embedding.URL) {
			errs = append(errs, "embedding URL must be a valid URL")
		}
		if c.Embedding.Dimensions < 1 {
			errs = append(errs, "embedding dimensions must be positive when URL is set")
		}
	}

	if c.Database.PostgresURL == "" {
		errs = append(errs, "PostgreSQL URL is required")
	} else if !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if c.Memory.ShortTermMessages < 2 {
		errs = append(errs, "short-term buffer must hold at least 2 messages")
	}
	if c.Memory.SummaryInterval < 2 {
		errs = append(errs, "summary interval must be at least 2")
	}
	if c.Memory.TopPerLayer < 1 {
		errs = append(errs, "top-per-layer must be at least 1")
	}

	if c.Tools.MaxParallel < 1 {
		errs = append(errs, "tool parallelism must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("ARGO_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "argo")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".argo", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
