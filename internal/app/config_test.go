package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "admin", cfg.AdminPassword)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.LoginRateLimitPerMinute)
	assert.Equal(t, 30*time.Second, cfg.DashboardCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsDefaultAdminPasswordInProduction(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_PASSWORD", "admin")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("ADMIN_PASSWORD", "a-long-random-secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "c")

	_, err := LoadConfig()
	assert.Error(t, err)
}
