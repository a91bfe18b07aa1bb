package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/school")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "Europe/Zurich", cfg.DefaultTimezone)
	assert.Equal(t, 20, cfg.CancelReasonMinLength)
	assert.Equal(t, "warning", cfg.StudentConflictSeverity)
	assert.Equal(t, "warning", cfg.WindowConflictSeverity)
	assert.Empty(t, cfg.MQTTBrokerURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("CANCEL_REASON_MIN_LENGTH", "30")
	t.Setenv("STUDENT_CONFLICT_SEVERITY", "critical")
	t.Setenv("MQTT_BROKER_URL", "tcp://broker:1883")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction)
	assert.Equal(t, 30, cfg.CancelReasonMinLength)
	assert.Equal(t, "critical", cfg.StudentConflictSeverity)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTTBrokerURL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"DB_DSN": "", "JWT_SECRET": "s"}},
		{"missing secret", map[string]string{"DB_DSN": "dsn", "JWT_SECRET": ""}},
		{"bad ttl", map[string]string{"DB_DSN": "dsn", "JWT_SECRET": "s", "JWT_ACCESS_TOKEN_TTL": "soon"}},
		{"bad timezone", map[string]string{"DB_DSN": "dsn", "JWT_SECRET": "s", "DEFAULT_TIMEZONE": "Mars/Olympus"}},
		{"bad severity", map[string]string{"DB_DSN": "dsn", "JWT_SECRET": "s", "WINDOW_CONFLICT_SEVERITY": "fatal"}},
		{"zero reason length", map[string]string{"DB_DSN": "dsn", "JWT_SECRET": "s", "CANCEL_REASON_MIN_LENGTH": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
