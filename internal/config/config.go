package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	// StoreType selects the persistence backend: memory, mongo or postgres.
	StoreType   string
	MongoURI    string
	MongoDB     string
	PostgresDSN string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	TelebirrAPIKey string
	CBEBirrAPIKey  string
	MpesaAPIKey    string

	EventSource string
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		StoreType:   getEnv("STORE_TYPE", "memory"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "addisrent"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/addisrent?sslmode=disable"),

		RedisEnabled:  getEnv("REDIS_ENABLED", "false") == "true",
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		TelebirrAPIKey: getEnv("TELEBIRR_API_KEY", "test_key"),
		CBEBirrAPIKey:  getEnv("CBE_BIRR_API_KEY", "test_key"),
		MpesaAPIKey:    getEnv("MPESA_API_KEY", "test_key"),

		EventSource: getEnv("EVENT_SOURCE", "addisrent-core"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
