package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANONBOARD_CONFIG", "API_URL", "TOKEN_STORE", "TOKEN_FILE", "ANONBOARD_PROFILE",
		"REDIS_URL", "DATABASE_URL", "HTTP_TIMEOUT_SECONDS", "LOG_FILE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestNormalizeAPIURL(t *testing.T) {
	cases := map[string]string{
		"":                           "http://localhost:8080/api",
		"http://localhost:8080/api":  "http://localhost:8080/api",
		"http://localhost:8080/api/": "http://localhost:8080/api",
		"https://board.example.com":  "https://board.example.com/api",
		"https://board.example.com/": "https://board.example.com/api",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeAPIURL(in), in)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearClientEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, StoreFile, cfg.TokenStore)
	assert.Equal(t, "default", cfg.Profile)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.TokenFile)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearClientEnv(t)
	path := filepath.Join(t.TempDir(), "anonboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://board.example.com\ntoken_store: memory\nhttp_timeout: 5s\n"), 0o600))
	t.Setenv("ANONBOARD_CONFIG", path)
	t.Setenv("TOKEN_STORE", "FILE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://board.example.com/api", cfg.APIURL)
	assert.Equal(t, StoreFile, cfg.TokenStore)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoadRejectsIncompleteStores(t *testing.T) {
	clearClientEnv(t)

	t.Setenv("TOKEN_STORE", "redis")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TOKEN_STORE", "postgres")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TOKEN_STORE", "cookie")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadServer(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_TTL_MINUTES", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("DEV_ADMIN_EMAIL", "")
	t.Setenv("DEV_ADMIN_PASSWORD", "")

	_, err := LoadServer()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_TTL_MINUTES", "nope")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)

	t.Setenv("DEV_ADMIN_EMAIL", "admin@example.com")
	_, err = LoadServer()
	assert.Error(t, err)
}
