package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return tmp
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 3*time.Second, cfg.DBTimeout)
	assert.Equal(t, 14*24*time.Hour, cfg.LoanPeriod)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LOAN_PERIOD", "72h")
	t.Setenv("SWEEP_INTERVAL", "0")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("ENABLE_HSTS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 72*time.Hour, cfg.LoanPeriod)
	assert.Equal(t, time.Duration(0), cfg.SweepInterval)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.True(t, cfg.EnableHSTS)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvFileDoesNotOverrideRuntimeEnv(t *testing.T) {
	tmp := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("DB_DSN=from_file\nAPP_ADDR=:9999\n"), 0o644))
	t.Setenv("DB_DSN", "from_env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.DBDSN)
	assert.Equal(t, ":9999", cfg.AppAddr)
	t.Cleanup(func() { _ = os.Unsetenv("APP_ADDR") })
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "x", DBTimeout: time.Second, LoanPeriod: time.Hour, AccessTokenTTL: time.Hour}
	require.NoError(t, base.Validate())

	bad := base
	bad.LoanPeriod = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.SweepInterval = -time.Second
	assert.Error(t, bad.Validate())

	bad = base
	bad.DBTimeout = 0
	assert.Error(t, bad.Validate())
}
