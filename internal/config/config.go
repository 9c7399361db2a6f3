package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// Auth
	JWTSecret      string
	AllowedOrigins string

	// Full-text backend budget: the adapter gives up and fails open after
	// this many milliseconds.
	FullTextTimeoutMS int

	// Capture fetcher rate limits (requests/second)
	CaptureGlobalRate    float64
	CapturePerDomainRate float64
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),

		FullTextTimeoutMS: getIntEnv("FULLTEXT_TIMEOUT_MS", 3000),

		CaptureGlobalRate:    getFloatEnv("CAPTURE_GLOBAL_RATE", 10),
		CapturePerDomainRate: getFloatEnv("CAPTURE_PER_DOMAIN_RATE", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
