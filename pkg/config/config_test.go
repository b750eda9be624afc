package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Admin.ListPerPage)
	assert.Equal(t, "/dashboard", cfg.Admin.DashboardPrefix)
	assert.Equal(t, "admin:", cfg.Cache.KeyPrefix)
	assert.Equal(t, []string{"default", "email"}, cfg.Queue.Names)
	assert.Equal(t, 10*time.Second, cfg.Email.Timeout)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, 72*time.Hour, cfg.JWT.PasswordResetTTL)
	assert.Equal(t, "http://localhost:3000/users/reset", cfg.JWT.PasswordResetURL)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverPgx)
	t.Setenv("ADMIN_LIST_PER_PAGE", "0")
	t.Setenv("ADMIN_DASHBOARD_PREFIX", "/panel/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("PASSWORD_RESET_TTL", "30m")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.test/media/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPgx, cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Admin.ListPerPage)
	assert.Equal(t, "/panel", cfg.Admin.DashboardPrefix)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 30*time.Minute, cfg.JWT.PasswordResetTTL)
	assert.Equal(t, "https://cdn.test/media", cfg.Storage.PublicBaseURL)
}
