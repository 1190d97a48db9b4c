package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, AuthModeBearer, cfg.EngineAuthMode)
	assert.Equal(t, 30*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, "campaign_status_updates", cfg.StatusQueue)
}

func TestLoadAuthMode(t *testing.T) {
	t.Setenv("N8N_AUTH_MODE", " Header ")
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, AuthModeHeader, cfg.EngineAuthMode)

	t.Setenv("N8N_AUTH_MODE", "basic")
	_, err = Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("DISPATCH_TIMEOUT", "soon")
	_, err := Load("does-not-exist.env")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestDSN(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://x"}
	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)

	cfg = Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "leads", DBSSLMode: "disable"}
	dsn, err = cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h:5432/leads?sslmode=disable", dsn)

	_, err = Config{}.DSN()
	assert.Error(t, err)
}

func TestEngineConfigured(t *testing.T) {
	assert.False(t, Config{EngineWebhookURL: "https://n8n"}.EngineConfigured())
	assert.False(t, Config{EngineAPIKey: "k"}.EngineConfigured())
	assert.True(t, Config{EngineWebhookURL: "https://n8n", EngineAPIKey: "k"}.EngineConfigured())
}
