package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	MongoURI string
	DBName   string
	LogLevel string

	JWTSecret string

	GoogleBooksAPIKey string
	ISBNDBAPIKey      string
	ProviderTimeout   time.Duration

	// Staleness thresholds, counted from a record's lastUpdated.
	SearchRefreshAfter time.Duration
	RecordRefreshAfter time.Duration

	RefreshWorkers   int
	RefreshQueueSize int

	// Cover mirroring; empty bucket disables it.
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
}

func Load() (*Config, error) {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:             getEnv("MONGODB_DB", "pagebound"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		GoogleBooksAPIKey:  getEnv("GOOGLE_BOOKS_API_KEY", ""),
		ISBNDBAPIKey:       getEnv("ISBNDB_API_KEY", ""),
		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 8*time.Second),
		SearchRefreshAfter: getDuration("SEARCH_REFRESH_AFTER", 7*24*time.Hour),
		RecordRefreshAfter: getDuration("RECORD_REFRESH_AFTER", 24*time.Hour),
		RefreshWorkers:     getInt("REFRESH_WORKERS", 4),
		RefreshQueueSize:   getInt("REFRESH_QUEUE_SIZE", 64),
		S3Bucket:           getEnv("AWS_S3_BUCKET", ""),
		S3Region:           getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
