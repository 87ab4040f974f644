package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:?cache=shared")
	t.Setenv("TOSS_BASE_URL", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	// The Toss REST API lives under /v1; the default must carry the prefix
	// so the client built from config reaches the real endpoints.
	assert.Equal(t, "https://api.tosspayments.com/v1", cfg.TossBaseURL)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_ProdRequiresLiveKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/charzing")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "a-strong-enough-secret")
	t.Setenv("TOSS_SECRET_KEY", "test_sk_not_live")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live_")
}
