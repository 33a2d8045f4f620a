package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Env             string
	HTTPAddr        string
	StorageMode     string
	MongoURI        string
	MongoDB         string
	KafkaBrokers    []string
	KafkaTopic      string
	JWTSecret       string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Load reads and validates the environment. Kafka and mongo settings are
// optional; STORAGE_MODE selects between the memory and mongo backends.
func Load() (Config, error) {
	cfg := Config{
		Env:            envOr("APP_ENV", "dev"),
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		StorageMode:    strings.ToLower(envOr("STORAGE_MODE", "memory")),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDB:        envOr("MONGO_DB", "idpsupport"),
		KafkaTopic:     envOr("KAFKA_TOPIC", "chat.events"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		KafkaBrokers:   csv(os.Getenv("KAFKA_BROKERS")),
		AllowedOrigins: csv(envOr("ALLOWED_ORIGINS", "*")),
	}

	switch cfg.StorageMode {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_MODE: %s", cfg.StorageMode)
	}

	shutdown, err := durationOr("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout = shutdown
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// csv splits a comma-separated value, dropping empty entries.
func csv(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return dur, nil
}
