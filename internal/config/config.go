// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Security provider endpoint and budget
	GoPlusURL            string
	ProviderMaxPerMinute int

	// Per-token analysis timeout inside the dedup registry
	AnalysisTimeout time.Duration

	// Batch execution chunk size
	ChunkSize int

	// Persistent score store
	StorePath string
	StoreTTL  time.Duration

	// Inbound HTTP rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Upstream circuit breaker
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Response integrity signing
	SigningEnabled bool
}

// Load creates a new Config from environment variables. A .env file in the
// working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:                    GetEnvOrDefault("PORT", "8080"),
		GoPlusURL:               GetEnvOrDefault("GOPLUS_URL", "https://api.gopluslabs.io"),
		ProviderMaxPerMinute:    GetEnvAsInt("PROVIDER_MAX_PER_MINUTE", 30),
		AnalysisTimeout:         GetEnvAsDuration("ANALYSIS_TIMEOUT", 25*time.Second),
		ChunkSize:               GetEnvAsInt("BATCH_CHUNK_SIZE", 5),
		StorePath:               GetEnvOrDefault("STORE_PATH", ""),
		StoreTTL:                GetEnvAsDuration("STORE_TTL", time.Hour),
		RateLimitRPS:            GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst:          GetEnvAsInt("RATE_LIMIT_BURST", 20),
		BreakerFailureThreshold: GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:         GetEnvAsDuration("BREAKER_COOLDOWN", 2*time.Minute),
		OtelEndpoint:            GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SigningEnabled:          GetEnvAsBool("SIGNING_ENABLED", false),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
