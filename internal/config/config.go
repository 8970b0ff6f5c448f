package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabaseURL     string
	DatabasePath    string
	MigrationsPath  string
	SessionDuration time.Duration

	// Identity provider (GoTrue-style auth API)
	IdentityBaseURL    string
	IdentityAPIKey     string
	IdentityServiceKey string
	IdentityJWTSecret  string

	// Local pending/onboarding store
	LocalStorePath string

	// CSRF token signing secret
	CSRFSecret string

	// OAuth sign-in
	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	// Guardian email (SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	AuditLogLevel string
	Debug         bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:           getEnv("PORT", "8080"),
		DatabaseType:         getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DatabasePath:         getEnv("DB_PATH", "./guardianlink.db"),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionDuration:      24 * time.Hour,
		IdentityBaseURL:      os.Getenv("IDENTITY_BASE_URL"),
		IdentityAPIKey:       os.Getenv("IDENTITY_API_KEY"),
		IdentityServiceKey:   os.Getenv("IDENTITY_SERVICE_KEY"),
		IdentityJWTSecret:    os.Getenv("IDENTITY_JWT_SECRET"),
		LocalStorePath:       getEnv("LOCAL_STORE_PATH", "./localstore"),
		CSRFSecret:           os.Getenv("CSRF_SECRET"),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectBaseURL: os.Getenv("OAUTH_REDIRECT_BASE_URL"),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:         os.Getenv("SES_FROM_EMAIL"),
		SESFromName:          getEnv("SES_FROM_NAME", "GuardianLink"),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:8080"),
		AuditLogLevel:        getEnv("AUDIT_LOG_LEVEL", "info"),
		Debug:                os.Getenv("DEBUG") == "true",
	}

	if cfg.IdentityBaseURL == "" {
		return nil, fmt.Errorf("IDENTITY_BASE_URL environment variable is required")
	}
	if cfg.IdentityServiceKey == "" {
		return nil, fmt.Errorf("IDENTITY_SERVICE_KEY environment variable is required")
	}
	if cfg.CSRFSecret == "" {
		return nil, fmt.Errorf("CSRF_SECRET environment variable is required")
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
