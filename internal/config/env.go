package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StubEnv configures the development stand-in for the remote order service.
type StubEnv struct {
	Port           string
	MongoURI       string
	DBName         string
	JWTSecret      string
	AccessTokenTTL time.Duration
}

// LoadStubEnv reads the stub settings. JWT_SECRET is mandatory; an empty
// MONGO_URI selects the in-memory repository.
func LoadStubEnv() StubEnv {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	return StubEnv{
		Port:           getEnvOrDefault("STUB_PORT", "8080"),
		MongoURI:       getEnvOrDefault("MONGO_URI", ""),
		DBName:         getEnvOrDefault("DB_NAME", "storefront_stub"),
		JWTSecret:      mustEnv("JWT_SECRET"),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
	}
}

func mustEnv(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		log.Fatalf("ENV %s is required", key)
	}
	return strings.TrimSpace(value)
}
