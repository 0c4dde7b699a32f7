package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, "BAGO", cfg.QRPrefix)
	require.Equal(t, 1000, cfg.QRMaxBatch)
	require.Equal(t, 5, cfg.LowStockThreshold)
	require.False(t, cfg.TracingEnabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigValidateRejectsBadPrefix(t *testing.T) {
	cfg := Config{SessionSecret: "s", CSRFSecret: "c", QRPrefix: "bago", QRMaxBatch: 1000, LogFormat: "json", LoginRateLimit: 10, QRRateLimit: 10}
	require.Error(t, cfg.Validate())

	cfg.QRPrefix = "BAGO"
	require.NoError(t, cfg.Validate())

	cfg.LogFormat = "xml"
	require.Error(t, cfg.Validate())
}

func TestConfigValidateSeedAdmin(t *testing.T) {
	cfg := Config{SessionSecret: "s", CSRFSecret: "c", QRPrefix: "BAGO", QRMaxBatch: 1000, LogFormat: "pretty", LoginRateLimit: 10, QRRateLimit: 10}
	cfg.AdminUsername = "admin"
	cfg.AdminPassword = "short"
	require.Error(t, cfg.Validate())

	cfg.AdminPassword = "rahasia-kuat"
	require.NoError(t, cfg.Validate())

	cfg.QRRateLimit = 0
	require.Error(t, cfg.Validate())
}
