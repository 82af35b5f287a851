package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Sales     SalesConfig
	Knowledge KnowledgeConfig
	Ai        AIConfig
	Otel      OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	GateLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	NatsEnabled        bool
	RedisURL           string
	SessionBackend     string // "memory" or "redis"
	MaxSessions        int
}

type SalesConfig struct {
	CatalogPath    string
	ShortMemoryTTL time.Duration
	MaxImages      int
	HistoryTurns   int
}

type KnowledgeConfig struct {
	Enabled     bool
	Dir         string
	MaxNewLines int
	TopK        int
	MinScore    float64
}

type AIConfig struct {
	LLMProvider   string // "gemini", "ollama" or "stub"
	LLMModel      string
	OllamaBaseURL string
	GeminiAPIKey  string

	MaxAttempts     int
	RetryInitial    time.Duration
	RetryMax        time.Duration
	RetryMultiplier float64
}

type OtelConfig struct {
	Enabled  bool
	Endpoint string
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			GateLogFilePath:    getEnv("GATE_LOG_FILE_PATH", "logs/knowledge_gate.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			NatsEnabled:        getEnvAsBool("NATS_ENABLED", false),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionBackend:     getEnv("SESSION_BACKEND", "memory"),
			MaxSessions:        getEnvAsInt("MAX_SESSIONS", 3),
		},
		Sales: SalesConfig{
			CatalogPath:    getEnv("CATALOG_PATH", "data/catalog.json"),
			ShortMemoryTTL: getEnvAsDuration("SHORT_MEMORY_TTL", 15*time.Minute),
			MaxImages:      getEnvAsInt("MAX_IMAGES", 4),
			HistoryTurns:   getEnvAsInt("HISTORY_TURNS", 10),
		},
		Knowledge: KnowledgeConfig{
			Enabled:     getEnvAsBool("KNOWLEDGE_ENABLED", true),
			Dir:         getEnv("KNOWLEDGE_DIR", "knowledge"),
			MaxNewLines: getEnvAsInt("KNOWLEDGE_MAX_NEW_LINES", 5),
			TopK:        getEnvAsInt("KNOWLEDGE_TOP_K", 6),
			MinScore:    getEnvAsFloat("KNOWLEDGE_MIN_SCORE", 1.0),
		},
		Ai: AIConfig{
			LLMProvider:     getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:        getEnv("LLM_MODEL", ""),
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiAPIKey:    getEnv("GOOGLE_GEMINI_API_KEY", ""),
			MaxAttempts:     getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryInitial:    getEnvAsDuration("LLM_RETRY_INITIAL", 500*time.Millisecond),
			RetryMax:        getEnvAsDuration("LLM_RETRY_MAX", 4*time.Second),
			RetryMultiplier: getEnvAsFloat("LLM_RETRY_MULTIPLIER", 2),
		},
		Otel: OtelConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("15m") or plain seconds ("900").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
