package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"facility-cloud/internal/ingest"
)

// TokenConfig holds JWT issuance settings.
type TokenConfig struct {
	AccessTTL          time.Duration `yaml:"access_ttl"`
	RefreshTTL         time.Duration `yaml:"refresh_ttl"`
	RefreshTTLRemember time.Duration `yaml:"refresh_ttl_remember"`
}

// Config is the full service configuration. Environment variables fill
// defaults; an optional YAML file (FACILITY_CONFIG) overrides them.
type Config struct {
	DatabaseURL       string             `yaml:"database_url"`
	HTTPAddr          string             `yaml:"http_addr"`
	JWTSecret         string             `yaml:"jwt_secret"`
	IngestSecret      string             `yaml:"ingest_secret"`
	IngestSkewSeconds int                `yaml:"ingest_max_skew_seconds"`
	CORSOrigins       []string           `yaml:"cors_origins"`
	WebhookURL        string             `yaml:"webhook_url"`
	WebhookTemplate   string             `yaml:"webhook_template"`
	Tokens            TokenConfig        `yaml:"tokens"`
	Kafka             ingest.KafkaConfig `yaml:"kafka"`
}

// Load assembles the configuration from env and the optional file.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      os.Getenv("INGEST_HMAC_SECRET"),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		CORSOrigins:       splitCSV(getenvDefault("CORS_ORIGINS", "http://localhost:5173")),
		WebhookURL:        os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookTemplate:   os.Getenv("ALERT_WEBHOOK_TEMPLATE"),
		Tokens: TokenConfig{
			AccessTTL:          getenvDuration("AUTH_ACCESS_TTL", 30*time.Minute),
			RefreshTTL:         getenvDuration("AUTH_REFRESH_TTL", 7*24*time.Hour),
			RefreshTTLRemember: getenvDuration("AUTH_REFRESH_TTL_REMEMBER", 30*24*time.Hour),
		},
		Kafka: ingest.KafkaConfig{
			Enabled: getenvBoolDefault("KAFKA_INGEST_ENABLED", false),
			Brokers: splitCSV(getenvDefault("KAFKA_BROKERS", "")),
			Topic:   getenvDefault("KAFKA_READINGS_TOPIC", "facility.readings"),
			GroupID: getenvDefault("KAFKA_GROUP_ID", "facility-cloud"),
		},
	}

	if path := os.Getenv("FACILITY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
