package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds process configuration loaded from the environment.
type Config struct {
	HTTPAddr  string
	GRPCAddr  string
	LogLevel  string
	LogFormat string
	RatesFile string

	// AI extraction
	AIProvider       string // openai | ollama | none
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AIModel          string
	OllamaURL        string
	OllamaModel      string
	AITimeout        time.Duration
	AIMaxConcurrency int

	OCRURL    string
	OCRAPIKey string

	ReconcilePolicy    string
	ReconcileThreshold float64
	GateMinTurnover    float64
	GateTolerance      float64

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SMTPFrom    string
	QuotesInbox string

	MaxUploadSizeBytes int64
	RateLimitRPS       float64
	RateLimitBurst     int

	OTLPEndpoint string
}

// Load reads a .env file when present and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			log.Debug().Msg("no .env file found, relying on environment variables")
		} else {
			log.Warn().Err(err).Msg("error loading .env file, relying on environment variables")
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:  getEnv("GRPC_ADDR", ":50051"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		RatesFile: getEnv("RATES_FILE", ""),

		AIProvider:       strings.ToLower(getEnv("AI_PROVIDER", "none")),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		AIModel:          getEnv("AI_MODEL", ""),
		OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", ""),
		AITimeout:        getEnvAsDuration("AI_TIMEOUT", 4*time.Minute),
		AIMaxConcurrency: getEnvAsInt("AI_MAX_CONCURRENCY", 3),

		OCRURL:    getEnv("OCR_URL", ""),
		OCRAPIKey: getEnv("OCR_API_KEY", ""),

		ReconcilePolicy:    getEnv("RECONCILE_POLICY", "wholesale"),
		ReconcileThreshold: getEnvAsFloat("RECONCILE_THRESHOLD", 0.5),
		GateMinTurnover:    getEnvAsFloat("GATE_MIN_TURNOVER", 0),
		GateTolerance:      getEnvAsFloat("GATE_TOLERANCE", 1),

		SMTPHost:    getEnv("SMTP_HOST", ""),
		SMTPPort:    getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
		SMTPFrom:    getEnv("SMTP_FROM", ""),
		QuotesInbox: getEnv("QUOTES_INBOX", "quotes@cardmachinequote.com"),

		MaxUploadSizeBytes: int64(getEnvAsInt("MAX_UPLOAD_SIZE_BYTES", 10<<20)),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if cfg.AIProvider == "openai" && cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("AI_PROVIDER=openai without OPENAI_API_KEY, AI extraction disabled")
		cfg.AIProvider = "none"
	}
	return cfg
}

// SMTPEnabled reports whether mail delivery is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.QuotesInbox != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Debug().Str("key", key).Str("default", fallback).Msg("environment variable not set, using default")
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Warn().Str("key", key).Str("value", valueStr).Int("default", fallback).Msg("invalid integer value, using default")
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Warn().Str("key", key).Str("value", valueStr).Float64("default", fallback).Msg("invalid number value, using default")
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Warn().Str("key", key).Str("value", valueStr).Str("default", fallback.String()).Msg("invalid duration value, using default")
	return fallback
}
