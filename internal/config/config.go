package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

// Config holds the storefront client settings.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     string

	RemoteBaseURL string
	RemoteTimeout time.Duration

	StorageDriver string
	StorageDir    string
	RedisAddr     string
	RedisPrefix   string

	SyncMaxRetries    int
	PaymentMaxRetries int
	RetryBaseDelay    time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		AppEnv:            getEnvOrDefault("APP_ENV", "dev"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		Port:              getEnvOrDefault("PORT", "8090"),
		RemoteBaseURL:     strings.TrimRight(getEnvOrDefault("REMOTE_BASE_URL", "http://localhost:8080"), "/"),
		RemoteTimeout:     getDurationEnv("REMOTE_TIMEOUT_SECONDS", 10, time.Second),
		StorageDriver:     strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "file")),
		StorageDir:        getEnvOrDefault("STORAGE_DIR", ".storefront"),
		RedisAddr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:       getEnvOrDefault("REDIS_PREFIX", "storefront:"),
		SyncMaxRetries:    getIntEnv("SYNC_MAX_RETRIES", 3),
		PaymentMaxRetries: getIntEnv("PAYMENT_MAX_RETRIES", 2),
		RetryBaseDelay:    getDurationEnv("RETRY_BASE_DELAY_MS", 200, time.Millisecond),
	}
	return AppEnv
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
