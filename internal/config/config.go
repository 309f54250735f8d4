package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL     string
	Port            string
	LogLevel        string
	MigrationsPath  string
	UCallerAPIKey   string
	UCallerService  string
	UCallerAPIURL   string
	PushGatewayURL  string
	PushToken       string
	DispatchTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		UCallerAPIURL:  getEnvOrDefault("UCALLER_API_URL", "https://api.ucaller.ru/v1.0/"),
		PushToken:      os.Getenv("PUSH_GATEWAY_TOKEN"),
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.UCallerAPIKey = os.Getenv("UCALLER_API_KEY"); cfg.UCallerAPIKey == "" {
		return nil, fmt.Errorf("UCALLER_API_KEY environment variable is required")
	}
	if cfg.UCallerService = os.Getenv("UCALLER_SERVICE_ID"); cfg.UCallerService == "" {
		return nil, fmt.Errorf("UCALLER_SERVICE_ID environment variable is required")
	}
	if cfg.PushGatewayURL = os.Getenv("PUSH_GATEWAY_URL"); cfg.PushGatewayURL == "" {
		return nil, fmt.Errorf("PUSH_GATEWAY_URL environment variable is required")
	}

	// A hung dispatch would stall the whole per-minute sweep, so the
	// timeout stays short.
	timeoutSec, err := strconv.Atoi(getEnvOrDefault("DISPATCH_TIMEOUT_SECONDS", "5"))
	if err != nil || timeoutSec <= 0 {
		return nil, fmt.Errorf("DISPATCH_TIMEOUT_SECONDS must be a positive integer")
	}
	cfg.DispatchTimeout = time.Duration(timeoutSec) * time.Second

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
