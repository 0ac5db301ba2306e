// Package config loads the memory subsystem's configuration from environment
// variables, with an optional YAML file supplying defaults for local
// development. Environment variables always win over the file.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables named in the external interfaces design.
type Config struct {
	// Slot store
	SlotCategories       []string `yaml:"slot_categories"`
	MaxSlots             int      `yaml:"max_slots"`
	InjectedStateBudget  int      `yaml:"injected_state_token_budget"`
	StoreFilePath        string   `yaml:"store_file_path"`

	// Vector gateway
	VectorHost       string `yaml:"vector_host"`
	VectorPort       int    `yaml:"vector_port"`
	VectorCollection string `yaml:"vector_collection"`
	VectorSize       int    `yaml:"vector_size"`
	VectorMaxRetries int    `yaml:"vector_max_retries"`

	// LLM
	LLMBaseURL string `yaml:"llm_base_url"`
	LLMAPIKey  string `yaml:"llm_api_key"`
	LLMModel   string `yaml:"llm_model"`

	// Embedder
	EmbedBaseURL    string `yaml:"embed_base_url"`
	EmbedModel      string `yaml:"embed_model"`
	EmbedDimensions int    `yaml:"embed_dimensions"`

	// Auto-capture
	AutoCaptureEnabled     bool    `yaml:"auto_capture_enabled"`
	AutoCaptureMinConfidence float64 `yaml:"auto_capture_min_confidence"`

	// Context window
	ContextWindowMaxTokens int `yaml:"context_window_max_tokens"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in defaults, matching the reference backend's
// practice of defining sane defaults that getEnv falls back to.
func Default() Config {
	return Config{
		SlotCategories:           []string{"profile", "preferences", "project", "environment", "custom"},
		MaxSlots:                 1000,
		InjectedStateBudget:      2000,
		StoreFilePath:            "./agentmemory.db",
		VectorHost:               "localhost",
		VectorPort:               6333,
		VectorCollection:         "agent_memories",
		VectorSize:               768,
		VectorMaxRetries:         3,
		LLMBaseURL:               "http://localhost:11434",
		LLMModel:                 "llama3",
		EmbedBaseURL:             "http://localhost:11434",
		EmbedModel:               "nomic-embed-text",
		EmbedDimensions:          768,
		AutoCaptureEnabled:       true,
		AutoCaptureMinConfidence: 0.7,
		ContextWindowMaxTokens:   12000,
		LogLevel:                 "info",
	}
}

// LoadFromFile merges YAML-file defaults onto the built-in defaults. A
// missing file is not an error; it simply means the built-in defaults stand.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads environment variables over the given base config, the same
// getEnv-with-default style the reference backend's pkg/config uses.
func Load(base Config) Config {
	cfg := base
	cfg.StoreFilePath = getEnv("AGENTMEMORY_STORE_PATH", cfg.StoreFilePath)
	cfg.VectorHost = getEnv("AGENTMEMORY_VECTOR_HOST", cfg.VectorHost)
	cfg.VectorPort = getEnvInt("AGENTMEMORY_VECTOR_PORT", cfg.VectorPort)
	cfg.VectorCollection = getEnv("AGENTMEMORY_VECTOR_COLLECTION", cfg.VectorCollection)
	cfg.VectorSize = getEnvInt("AGENTMEMORY_VECTOR_SIZE", cfg.VectorSize)
	cfg.VectorMaxRetries = getEnvInt("AGENTMEMORY_VECTOR_MAX_RETRIES", cfg.VectorMaxRetries)
	cfg.LLMBaseURL = getEnv("AGENTMEMORY_LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("AGENTMEMORY_LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("AGENTMEMORY_LLM_MODEL", cfg.LLMModel)
	cfg.EmbedBaseURL = getEnv("AGENTMEMORY_EMBED_BASE_URL", cfg.EmbedBaseURL)
	cfg.EmbedModel = getEnv("AGENTMEMORY_EMBED_MODEL", cfg.EmbedModel)
	cfg.EmbedDimensions = getEnvInt("AGENTMEMORY_EMBED_DIMENSIONS", cfg.EmbedDimensions)
	cfg.AutoCaptureEnabled = getEnvBool("AGENTMEMORY_AUTO_CAPTURE_ENABLED", cfg.AutoCaptureEnabled)
	cfg.AutoCaptureMinConfidence = getEnvFloat("AGENTMEMORY_AUTO_CAPTURE_MIN_CONFIDENCE", cfg.AutoCaptureMinConfidence)
	cfg.ContextWindowMaxTokens = getEnvInt("AGENTMEMORY_CONTEXT_WINDOW_MAX_TOKENS", cfg.ContextWindowMaxTokens)
	cfg.MaxSlots = getEnvInt("AGENTMEMORY_MAX_SLOTS", cfg.MaxSlots)
	cfg.InjectedStateBudget = getEnvInt("AGENTMEMORY_INJECTED_STATE_BUDGET", cfg.InjectedStateBudget)
	cfg.LogLevel = getEnv("AGENTMEMORY_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// VectorTimeout is the per-request timeout applied to outbound vector calls.
func VectorTimeout() time.Duration { return 10 * time.Second }
