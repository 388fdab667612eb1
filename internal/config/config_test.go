package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GATEWAY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("UPSTREAM_USERNAME", "")
	t.Setenv("UPSTREAM_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultUpstreamBaseURL, cfg.Upstream.BaseURL)
	assert.Empty(t, cfg.Upstream.Username)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Contains(t, cfg.RateLimit.Exclude, "/_next/static/*")
	assert.Equal(t, "session", cfg.Session.CookieName)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("UPSTREAM_BASE_URL", "https://vendors.test/wp-json/dokan/v1/")
	t.Setenv("UPSTREAM_USERNAME", "admin")
	t.Setenv("UPSTREAM_PASSWORD", "secret")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("RATE_LIMIT_EXCLUDE", "/assets/*, /robots.txt")
	t.Setenv("OTP_EXPOSE_CODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://vendors.test/wp-json/dokan/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "admin", cfg.Upstream.Username)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Contains(t, cfg.RateLimit.Exclude, "/assets/*")
	assert.Contains(t, cfg.RateLimit.Exclude, "/robots.txt")
	assert.False(t, cfg.OTP.ExposeCode)
	assert.True(t, cfg.Logging.JSONFormat)
}

func TestLoadMergesYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	body := []byte("rate_limit:\n  exclude:\n    - /static/*\ncors:\n  allowed_origins:\n    - https://shop.test\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("GATEWAY_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.RateLimit.Exclude, "/static/*")
	assert.Equal(t, []string{"https://shop.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit: [:"), 0o600))
	t.Setenv("GATEWAY_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveQuota(t *testing.T) {
	t.Setenv("GATEWAY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	_, err := Load()
	assert.Error(t, err)
}
