package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int
	CORSOrigins    []string

	// Database
	DatabaseDriver   string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	StatusTTL     time.Duration

	// Kafka
	KafkaBrokers     []string
	KafkaGroupID     string
	KafkaInputTopic  string
	KafkaOutputTopic string
	KafkaDLQTopic    string

	// LLM
	LLMProvider    string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModelName   string
	LLMTemperature float64
	LLMTopP        float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// NER
	NEREngine       string
	NERInferenceURL string
	NERAPIToken     string
	NERModelName    string
	NERRulesPath    string
	NERLabelsPath   string
	NERLoadAttempts int
	NERTimeout      time.Duration

	// Extraction
	DefaultMethod   string
	ClaimTimeout    time.Duration
	DLPRulesPath    string
	TerminologyPath string

	// Intake
	IngestionAllowedSources []string
	MaxTranscriptChars      int

	// Feature toggles
	PersistenceEnabled    bool
	StatusTrackingEnabled bool
	WorkerEnabled         bool
}

// Load reads configuration from the process environment.
func Load() *Config {
	return LoadWithLookup(os.Getenv)
}

// LoadWithLookup builds a Config from an arbitrary key lookup, letting the
// CLI resolve values through viper (config file, env prefix, flags).
func LoadWithLookup(lookup func(string) string) *Config {
	e := env{lookup: lookup}
	return &Config{
		ServerPort:     e.get("SERVER_PORT", "8090"),
		ServerHost:     e.get("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    e.duration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   e.duration("WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBody: int64(e.int("MAX_REQUEST_BODY_BYTES", 1024*1024)),
		RateLimitRPS:   e.int("RATE_LIMIT_RPS", 10),
		RateLimitBurst: e.int("RATE_LIMIT_BURST", 20),
		CORSOrigins:    e.stringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		DatabaseDriver:   e.get("DATABASE_DRIVER", "postgres"),
		SQLitePath:       e.get("SQLITE_PATH", "clinextract.db"),
		PostgresHost:     e.get("POSTGRES_HOST", "localhost"),
		PostgresPort:     e.get("POSTGRES_PORT", "5432"),
		PostgresUser:     e.get("POSTGRES_USER", "synaptica"),
		PostgresPassword: e.get("POSTGRES_PASSWORD", "synaptica123"),
		PostgresDB:       e.get("POSTGRES_DB", "clinextract"),
		PostgresSSLMode:  e.get("POSTGRES_SSLMODE", "disable"),

		RedisHost:     e.get("REDIS_HOST", "localhost"),
		RedisPort:     e.get("REDIS_PORT", "6379"),
		RedisPassword: e.get("REDIS_PASSWORD", ""),
		RedisDB:       e.int("REDIS_DB", 0),
		StatusTTL:     e.duration("STATUS_TTL", 72*time.Hour),

		KafkaBrokers:     e.stringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     e.get("KAFKA_GROUP_ID", "clinical-extraction"),
		KafkaInputTopic:  e.get("KAFKA_INPUT_TOPIC", "transcribed-events"),
		KafkaOutputTopic: e.get("KAFKA_OUTPUT_TOPIC", "extracted-events"),
		KafkaDLQTopic:    e.get("KAFKA_DLQ_TOPIC", "extraction-dlq"),

		LLMProvider:    e.get("LLM_PROVIDER", "nvidia"),
		LLMAPIKey:      e.get("LLM_API_KEY", e.get("NVIDIA_API_KEY", "")),
		LLMBaseURL:     e.get("LLM_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		LLMModelName:   e.get("LLM_MODEL_NAME", "openai/gpt-oss-20b"),
		LLMTemperature: e.float("LLM_TEMPERATURE", 0.1),
		LLMTopP:        e.float("LLM_TOP_P", 0.9),
		LLMMaxTokens:   e.int("LLM_MAX_TOKENS", 2048),
		LLMTimeout:     e.duration("LLM_TIMEOUT", 0),

		NEREngine:       e.get("NER_ENGINE", "rules"),
		NERInferenceURL: e.get("NER_INFERENCE_URL", ""),
		NERAPIToken:     e.get("NER_API_TOKEN", ""),
		NERModelName:    e.get("NER_MODEL_NAME", "pacovalentino/Text2NER"),
		NERRulesPath:    e.get("NER_RULES_PATH", ""),
		NERLabelsPath:   e.get("NER_LABELS_PATH", ""),
		NERLoadAttempts: e.int("NER_LOAD_ATTEMPTS", 3),
		NERTimeout:      e.duration("NER_TIMEOUT", 30*time.Second),

		DefaultMethod:   e.get("EXTRACTION_DEFAULT_METHOD", "llm"),
		ClaimTimeout:    e.duration("EXTRACTION_CLAIM_TIMEOUT", 10*time.Minute),
		DLPRulesPath:    e.get("DLP_RULES_PATH", ""),
		TerminologyPath: e.get("TERMINOLOGY_PATH", ""),

		IngestionAllowedSources: e.stringSlice("INGESTION_ALLOWED_SOURCES", nil),
		MaxTranscriptChars:      e.int("MAX_TRANSCRIPT_CHARS", 50000),

		PersistenceEnabled:    e.bool("PERSISTENCE_ENABLED", false),
		StatusTrackingEnabled: e.bool("STATUS_TRACKING_ENABLED", false),
		WorkerEnabled:         e.bool("WORKER_ENABLED", false),
	}
}

type env struct {
	lookup func(string) string
}

func (e env) get(key, defaultValue string) string {
	if value := strings.TrimSpace(e.lookup(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e env) int(key string, defaultValue int) int {
	if value := e.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) float(key string, defaultValue float64) float64 {
	if value := e.lookup(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (e env) bool(key string, defaultValue bool) bool {
	if value := e.lookup(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (e env) stringSlice(key string, defaultValue []string) []string {
	value := e.lookup(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func (e env) duration(key string, defaultValue time.Duration) time.Duration {
	if value := e.lookup(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
