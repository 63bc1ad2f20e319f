// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML/JSON file named by KPIBOARD_CONFIG.
// Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const FileEnv = "KPIBOARD_CONFIG"

type Config struct {
	Addr                   string
	DatabaseURL            string
	JWTSecret              string
	TokenTTL               time.Duration
	DataEncryptionKey      string
	Environment            string
	SeedAdminEmail         string
	SeedAdminPassword      string
	SeedAdminName          string
	EmailFrom              string
	EmailEnabled           bool
	SMTPHost               string
	SMTPPort               int
	SMTPUser               string
	SMTPPassword           string
	SMTPUseTLS             bool
	RunMigrations          bool
	RunSeed                bool
	MaxBodyBytes           int64
	RateLimitPerMinute     int
	BucketTimezone         string
	ReviewReminderInterval time.Duration
	MetricsEnabled         bool
	LogLevel               string
	LogFile                string
	TracingEnabled         bool
	TracingEndpoint        string
}

var defaults = map[string]any{
	"APP_ADDR":                 ":8080",
	"DATABASE_URL":             "",
	"JWT_SECRET":               "",
	"TOKEN_TTL":                "8h",
	"DATA_ENCRYPTION_KEY":      "",
	"APP_ENV":                  "development",
	"SEED_ADMIN_EMAIL":         "",
	"SEED_ADMIN_PASSWORD":      "",
	"SEED_ADMIN_NAME":          "Administrator",
	"EMAIL_FROM":               "no-reply@example.com",
	"EMAIL_ENABLED":            false,
	"SMTP_HOST":                "",
	"SMTP_PORT":                587,
	"SMTP_USER":                "",
	"SMTP_PASSWORD":            "",
	"SMTP_USE_TLS":             true,
	"RUN_MIGRATIONS":           true,
	"RUN_SEED":                 true,
	"MAX_BODY_BYTES":           1048576,
	"RATE_LIMIT_PER_MINUTE":    60,
	"BUCKET_TIMEZONE":          "UTC",
	"REVIEW_REMINDER_INTERVAL": "24h",
	"METRICS_ENABLED":          true,
	"LOG_LEVEL":                "info",
	"LOG_FILE":                 "",
	"TRACING_ENABLED":          false,
	"TRACING_ENDPOINT":         "http://localhost:14268/api/traces",
}

// Load reads .env (if present), then the config file named by
// KPIBOARD_CONFIG (if set), then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return Config{
		Addr:                   v.GetString("APP_ADDR"),
		DatabaseURL:            v.GetString("DATABASE_URL"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		TokenTTL:               v.GetDuration("TOKEN_TTL"),
		DataEncryptionKey:      v.GetString("DATA_ENCRYPTION_KEY"),
		Environment:            v.GetString("APP_ENV"),
		SeedAdminEmail:         v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:      v.GetString("SEED_ADMIN_PASSWORD"),
		SeedAdminName:          v.GetString("SEED_ADMIN_NAME"),
		EmailFrom:              v.GetString("EMAIL_FROM"),
		EmailEnabled:           v.GetBool("EMAIL_ENABLED"),
		SMTPHost:               v.GetString("SMTP_HOST"),
		SMTPPort:               v.GetInt("SMTP_PORT"),
		SMTPUser:               v.GetString("SMTP_USER"),
		SMTPPassword:           v.GetString("SMTP_PASSWORD"),
		SMTPUseTLS:             v.GetBool("SMTP_USE_TLS"),
		RunMigrations:          v.GetBool("RUN_MIGRATIONS"),
		RunSeed:                v.GetBool("RUN_SEED"),
		MaxBodyBytes:           v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute:     v.GetInt("RATE_LIMIT_PER_MINUTE"),
		BucketTimezone:         v.GetString("BUCKET_TIMEZONE"),
		ReviewReminderInterval: v.GetDuration("REVIEW_REMINDER_INTERVAL"),
		MetricsEnabled:         v.GetBool("METRICS_ENABLED"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		LogFile:                v.GetString("LOG_FILE"),
		TracingEnabled:         v.GetBool("TRACING_ENABLED"),
		TracingEndpoint:        v.GetString("TRACING_ENDPOINT"),
	}, nil
}

// Location is the organisational zone periods are bucketed in. An invalid
// zone falls back to UTC; Validate reports it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BucketTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if len(strings.TrimSpace(c.JWTSecret)) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.ReviewReminderInterval < 0 {
		return fmt.Errorf("REVIEW_REMINDER_INTERVAL must not be negative")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if _, err := time.LoadLocation(c.BucketTimezone); err != nil {
		return fmt.Errorf("BUCKET_TIMEZONE %q: %w", c.BucketTimezone, err)
	}
	if c.TracingEnabled && strings.TrimSpace(c.TracingEndpoint) == "" {
		return fmt.Errorf("TRACING_ENDPOINT must be set when TRACING_ENABLED is true")
	}
	return nil
}
