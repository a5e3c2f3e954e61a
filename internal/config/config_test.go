package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lukextesst/user/internal/config"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 5, c.GetMaxKeysPerDay())
	require.Equal(t, 24*time.Hour, c.GetSessionDuration())
	require.Equal(t, 10*time.Minute, c.GetAuthStateLifespan())
	require.Equal(t, 5*time.Minute, c.GetVerificationTokenLifespan())
	require.Equal(t, 10*time.Minute, c.GetDownloadExpiry())
	require.Equal(t, 10*time.Second, c.GetRateLimitWindow())
	require.Equal(t, 10, c.GetRateLimitMax())
	require.Equal(t, 5, c.GetGenerateRateLimitMax())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("*"))
	require.True(t, c.GetTrustForwardedFor())
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MAX_KEYS_PER_DAY", "3")
	t.Setenv("RATE_LIMIT_MAX", "2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c := config.New()
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, 3, c.GetMaxKeysPerDay())
	require.Equal(t, 2, c.GetGenerateRateLimitMax())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("*"))
}

func TestConfig_InvalidIntegerFallsBack(t *testing.T) {
	t.Setenv("MAX_KEYS_PER_DAY", "lots")
	require.Equal(t, 5, config.New().GetMaxKeysPerDay())
}

func TestConfig_LoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keygate.yaml")
	err := os.WriteFile(path, []byte("MAX_KEYS_PER_DAY: 7\nDOWNLOAD_URL: https://files.example/artifact.zip\nAPP_NAME: from-file\n"), 0o600)
	require.NoError(t, err)

	t.Setenv("APP_NAME", "from-env")

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, c.GetMaxKeysPerDay())
	require.Equal(t, "https://files.example/artifact.zip", c.GetDownloadURL())
	require.Equal(t, "from-env", c.GetAppName())
}

func TestConfig_LoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
