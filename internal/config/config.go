package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int
	LogLevel          string

	// Scheduling rules
	DefaultTimezone         string
	CancelReasonMinLength   int
	StudentConflictSeverity string
	WindowConflictSeverity  string
	CompletionCron          string

	// Booking events (MQTT is optional; empty broker disables publishing)
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTTopicPrefix string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.WithError(err).Debug("no .env file loaded")
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	ttlStr := getEnv("JWT_ACCESS_TOKEN_TTL", "15m")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}
	cfg.JWTAccessTokenTTL = ttl

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Timezone used for schools created without an explicit one.
	cfg.DefaultTimezone = getEnv("DEFAULT_TIMEZONE", "Europe/Zurich")
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}

	cfg.CancelReasonMinLength, err = getEnvAsInt("CANCEL_REASON_MIN_LENGTH", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid CANCEL_REASON_MIN_LENGTH: %w", err)
	}
	if cfg.CancelReasonMinLength < 1 {
		return nil, fmt.Errorf("CANCEL_REASON_MIN_LENGTH must be positive")
	}

	cfg.StudentConflictSeverity, err = getEnvAsSeverity("STUDENT_CONFLICT_SEVERITY", "warning")
	if err != nil {
		return nil, err
	}
	cfg.WindowConflictSeverity, err = getEnvAsSeverity("WINDOW_CONFLICT_SEVERITY", "warning")
	if err != nil {
		return nil, err
	}

	cfg.CompletionCron = getEnv("COMPLETION_CRON", "*/15 * * * *")

	cfg.MQTTBrokerURL = getEnv("MQTT_BROKER_URL", "")
	cfg.MQTTClientID = getEnv("MQTT_CLIENT_ID", "driving-school-backend")
	cfg.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "schools")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsSeverity retrieves a conflict severity name (critical, warning or info).
func getEnvAsSeverity(key, defaultValue string) (string, error) {
	v := getEnv(key, defaultValue)
	switch v {
	case "critical", "warning", "info":
		return v, nil
	}
	return "", fmt.Errorf("env %s value %q must be one of critical, warning, info", key, v)
}
