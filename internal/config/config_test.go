package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ":8081", cfg.Gateway.Addr)
	assert.Empty(t, cfg.Relay.BackendURL)
	assert.Equal(t, "http://localhost:8080/api/proxyLLM", cfg.Relay.Endpoint)
	assert.Zero(t, cfg.Relay.ClientTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "ark", cfg.Gateway.Provider)
	assert.Nil(t, cfg.Gateway.Ark.Temperature)
	assert.False(t, cfg.Gateway.Ark.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("LLM_BACKEND_URL", " https://backend.example/api/generate ")
	t.Setenv("RELAY_CLIENT_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("GATEWAY_PROVIDER", "OpenAI")
	t.Setenv("ARK_TEMPERATURE", "0.7")
	t.Setenv("ARK_MAX_TOKENS", "512")
	t.Setenv("ARK_API_KEY", "k")
	t.Setenv("ARK_MODEL", "m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "https://backend.example/api/generate", cfg.Relay.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.Relay.ClientTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "openai", cfg.Gateway.Provider)
	require.NotNil(t, cfg.Gateway.Ark.Temperature)
	assert.InDelta(t, 0.7, *cfg.Gateway.Ark.Temperature, 1e-9)
	require.NotNil(t, cfg.Gateway.Ark.MaxTokens)
	assert.Equal(t, 512, *cfg.Gateway.Ark.MaxTokens)
	assert.True(t, cfg.Gateway.Ark.Enabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "9090"
relay:
  backend_url: https://file.example/generate
gateway:
  provider: gemini
`), 0o600))
	t.Setenv("LLM_BACKEND_URL", "https://env.example/generate")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://env.example/generate", cfg.Relay.BackendURL)
	assert.Equal(t, "gemini", cfg.Gateway.Provider)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PORT":            "80 80",
		"ARK_TEMPERATURE": "warm",
		"ARK_MAX_TOKENS":  "many",
	}
	for env, value := range cases {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
