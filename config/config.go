// Package config loads process settings from the environment and validates
// them at startup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Model provider kinds.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Thread store kinds.
const (
	ThreadStoreMemory   = "memory"
	ThreadStoreMongo    = "mongo"
	ThreadStoreRedis    = "redis"
	ThreadStorePostgres = "postgres"
)

// Settings holds the full process configuration.
type Settings struct {
	// Model provider
	ModelEndpoint string
	ModelProvider string
	ModelAPIKey   string
	Model         string
	Temperature   float64

	// Agent definition IDs, resolved against the catalog at startup.
	ProductAgentID   string
	OrderAgentID     string
	KnowledgeAgentID string

	// Stores
	MongoURI      string
	MongoDatabase string
	ThreadStore   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Orchestration
	CacheCapacity int
	CacheTTL      time.Duration
	TokenBudget   int
	InvokeTimeout time.Duration
	MaxIterations int

	// HTTP surface
	HTTPAddr string

	// Optional MCP tool server endpoint shared by all agents.
	MCPEndpoint string

	// Telemetry
	Environment      string
	DisableTelemetry bool
}

// Load reads settings from the environment, applying defaults.
func Load() *Settings {
	return &Settings{
		ModelEndpoint: os.Getenv("PAINTDESK_MODEL_ENDPOINT"),
		ModelProvider: getEnv("PAINTDESK_MODEL_PROVIDER", ProviderOpenAI),
		ModelAPIKey:   os.Getenv("PAINTDESK_MODEL_API_KEY"),
		Model:         os.Getenv("PAINTDESK_MODEL"),
		Temperature:   getEnvFloat("PAINTDESK_TEMPERATURE", 0.7),

		ProductAgentID:   os.Getenv("PAINTDESK_PRODUCT_AGENT_ID"),
		OrderAgentID:     os.Getenv("PAINTDESK_ORDER_AGENT_ID"),
		KnowledgeAgentID: os.Getenv("PAINTDESK_KNOWLEDGE_AGENT_ID"),

		MongoURI:      os.Getenv("PAINTDESK_MONGODB_URI"),
		MongoDatabase: getEnv("PAINTDESK_MONGODB_DATABASE", "paintdesk"),
		ThreadStore:   getEnv("PAINTDESK_THREAD_STORE", ThreadStoreMemory),
		RedisAddr:     getEnv("PAINTDESK_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("PAINTDESK_REDIS_PASSWORD"),
		RedisDB:       getEnvInt("PAINTDESK_REDIS_DB", 0),

		PostgresHost:     getEnv("PAINTDESK_POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvInt("PAINTDESK_POSTGRES_PORT", 5432),
		PostgresUser:     getEnv("PAINTDESK_POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("PAINTDESK_POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("PAINTDESK_POSTGRES_DB", "paintdesk"),
		PostgresSSLMode:  getEnv("PAINTDESK_POSTGRES_SSLMODE", "disable"),

		CacheCapacity: getEnvInt("PAINTDESK_CACHE_CAPACITY", 1000),
		CacheTTL:      getEnvDuration("PAINTDESK_CACHE_TTL", time.Hour),
		TokenBudget:   getEnvInt("PAINTDESK_TOKEN_BUDGET", 6000),
		InvokeTimeout: getEnvDuration("PAINTDESK_INVOKE_TIMEOUT", 120*time.Second),
		MaxIterations: getEnvInt("PAINTDESK_MAX_ITERATIONS", 5),

		HTTPAddr: getEnv("PAINTDESK_HTTP_ADDR", ":8080"),

		MCPEndpoint: os.Getenv("PAINTDESK_MCP_ENDPOINT"),

		Environment:      getEnv("PAINTDESK_ENVIRONMENT", "development"),
		DisableTelemetry: getEnvBool("PAINTDESK_DISABLE_TELEMETRY", false),
	}
}

// Configured reports whether the model backend is usable: an endpoint or API
// key must be present, along with at least one agent definition ID. When
// false the orchestrator degrades to canned error responses.
func (s *Settings) Configured() bool {
	if s.ModelEndpoint == "" && s.ModelAPIKey == "" {
		return false
	}
	return s.ProductAgentID != "" || s.OrderAgentID != "" || s.KnowledgeAgentID != ""
}

// AgentIDs returns the configured agent definition IDs keyed by agent name.
// Unset IDs are omitted.
func (s *Settings) AgentIDs() map[string]string {
	ids := make(map[string]string, 3)
	if s.ProductAgentID != "" {
		ids["ProductLookupAgent"] = s.ProductAgentID
	}
	if s.OrderAgentID != "" {
		ids["OrderStatusAgent"] = s.OrderAgentID
	}
	if s.KnowledgeAgentID != "" {
		ids["KnowledgeAgent"] = s.KnowledgeAgentID
	}
	return ids
}

// Validate checks settings that must hold regardless of configured state.
func (s *Settings) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("PAINTDESK_MODEL_PROVIDER", s.ModelProvider,
		ProviderOpenAI, ProviderClaude, ProviderGemini)
	v.ValidateOneOf("PAINTDESK_THREAD_STORE", s.ThreadStore,
		ThreadStoreMemory, ThreadStoreMongo, ThreadStoreRedis, ThreadStorePostgres)
	v.RequirePositive("PAINTDESK_CACHE_CAPACITY", s.CacheCapacity)
	v.RequirePositive("PAINTDESK_MAX_ITERATIONS", s.MaxIterations)
	v.ValidateFloatRange("PAINTDESK_TEMPERATURE", s.Temperature, 0.0, 2.0)
	v.RequireNonEmpty("PAINTDESK_HTTP_ADDR", s.HTTPAddr)

	if s.CacheTTL <= 0 {
		v.RequirePositive("PAINTDESK_CACHE_TTL", int(s.CacheTTL))
	}
	if s.ThreadStore == ThreadStoreMongo {
		v.RequireNonEmpty("PAINTDESK_MONGODB_URI", s.MongoURI)
	}
	if s.ThreadStore == ThreadStorePostgres {
		v.ValidateRange("PAINTDESK_POSTGRES_PORT", s.PostgresPort, 1, 65535)
		v.ValidateOneOf("PAINTDESK_POSTGRES_SSLMODE", s.PostgresSSLMode,
			"disable", "require", "verify-ca", "verify-full")
	}

	return v.Error()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
