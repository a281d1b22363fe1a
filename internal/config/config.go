package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Addr      string
	Env       string
	LogLevel  string
	LogFormat string

	RecordsBaseURL string
	RecordsTimeout time.Duration

	CacheBackend  string
	CacheFilePath string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	CacheRedisKey string
	CacheTTL      time.Duration

	S3Bucket            string
	CacheS3Key          string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	EnableMetrics      bool
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Addr:      getEnv("VIEWER_ADDR", ":8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "json"))),

		RecordsBaseURL: getEnv("RECORDS_API_BASE_URL", "http://localhost:8000"),
		RecordsTimeout: getEnvAsDuration("RECORDS_API_TIMEOUT", 30*time.Second),

		CacheBackend:  strings.ToLower(strings.TrimSpace(getEnv("PROFILE_CACHE_BACKEND", "file"))),
		CacheFilePath: getEnv("PROFILE_CACHE_FILE", defaultCacheFile()),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		CacheRedisKey: getEnv("PROFILE_CACHE_REDIS_KEY", "viewer:profile-cache"),
		CacheTTL:      getEnvAsDuration("PROFILE_CACHE_TTL", 0),

		S3Bucket:            getEnv("S3_BUCKET", ""),
		CacheS3Key:          getEnv("PROFILE_CACHE_S3_KEY", "profile-cache.json"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EnableMetrics:      getEnvAsBool("ENABLE_METRICS", true),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// defaultCacheFile resolves the file-backend default under the user's
// home directory, falling back to the working directory when home is
// unavailable.
func defaultCacheFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "profile-cache.json"
	}
	return filepath.Join(home, ".patient-records-viewer", "profile-cache.json")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, dropping
// empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
