package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	// Serving domain for agent addresses (e.g. "mail-to-ai.com")
	AgentDomain string

	// Database
	DataDir      string
	DatabasePath string

	// LLM provider
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	// Cheaper model used for synthesizing dynamic agent prompts
	OpenAIPromptModel string

	// Outbound email transport
	OutboundBaseURL string
	OutboundAPIKey  string

	// Inbound webhook
	WebhookSecret string

	// Rate limiting
	RateLimit       int
	RateLimitWindow time.Duration

	// Queue worker
	QueueSize        int
	QueueWorkers     int
	QueueMaxAttempts int

	// Research agent
	SearchBaseURL      string
	ResearchPostFilter bool
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		cfg = load()
	})
	return cfg
}

// load reads configuration from environment variables
func load() *Config {
	// Optional .env file for local development
	_ = godotenv.Load()

	dataDir := getEnv("AGENTMAIL_DATA_DIR", "./data")

	return &Config{
		// Server
		Port: getEnvInt("PORT", 8787),
		Host: getEnv("HOST", "0.0.0.0"),
		Env:  getEnv("ENV", "development"),

		AgentDomain: getEnv("AGENT_DOMAIN", "mail-to-ai.com"),

		// Data
		DataDir:      dataDir,
		DatabasePath: filepath.Join(dataDir, "agentmail.sqlite"),

		// OpenAI
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIPromptModel: getEnv("OPENAI_PROMPT_MODEL", "gpt-4o-mini"),

		// Outbound email
		OutboundBaseURL: getEnv("OUTBOUND_BASE_URL", "https://api.inbound.new/v1"),
		OutboundAPIKey:  getEnv("OUTBOUND_API_KEY", ""),

		// Webhook
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		// Rate limiting
		RateLimit:       getEnvInt("RATE_LIMIT", 10),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)) * time.Second,

		// Queue
		QueueSize:        getEnvInt("QUEUE_SIZE", 1000),
		QueueWorkers:     getEnvInt("QUEUE_WORKERS", 3),
		QueueMaxAttempts: getEnvInt("QUEUE_MAX_ATTEMPTS", 3),

		// Research
		SearchBaseURL:      getEnv("SEARCH_BASE_URL", "https://api.duckduckgo.com"),
		ResearchPostFilter: getEnv("RESEARCH_POSTFILTER", "") == "1",
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
