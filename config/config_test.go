package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpirationTime)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 30, cfg.ReactRateLimit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file::memory:")
	t.Setenv("THREAD_CACHE_TTL", "90s")
	t.Setenv("API_BASE_URL", "http://forum.local")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file::memory:", cfg.SQLitePath)
	assert.Equal(t, 90*time.Second, cfg.ThreadCacheTTL)
	assert.Equal(t, "http://forum.local", cfg.APIBaseURL)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()

	assert.ErrorContains(t, err, "DB_DRIVER")
}

// inEmptyDir 避免读到仓库里的 .env
func inEmptyDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
