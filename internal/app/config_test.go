package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("S3_SECRET_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2*time.Minute, cfg.StorageTimeout)
	assert.Equal(t, "@every 1h", cfg.CleanupCron)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.SeedAdminID)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresStorageSecret(t *testing.T) {
	t.Setenv("S3_SECRET_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.IsProduction())
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
