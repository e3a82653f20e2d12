package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.UserCacheTTL)
	assert.Equal(t, []string{"uploads"}, cfg.StorageBuckets)
	assert.Equal(t, "uploads", cfg.NotesBucket)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_URL", "https://project.example.com/auth/v1/")
	t.Setenv("STORAGE_BUCKETS", "uploads, avatars ,")
	t.Setenv("USER_CACHE_TTL", "30s")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://project.example.com/auth/v1", cfg.AuthURL)
	assert.Equal(t, []string{"uploads", "avatars"}, cfg.StorageBuckets)
	assert.Equal(t, 30*time.Second, cfg.UserCacheTTL)
	assert.True(t, cfg.MailEnabled())
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}
