package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3001", cfg.APIBaseURL)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.SessionRole)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POS_API_BASE_URL", "http://till.local:9000")
	t.Setenv("POS_REQUEST_TIMEOUT", "3s")
	t.Setenv("POS_SESSION_TOKEN", "tok-123")
	t.Setenv("POS_SESSION_USER_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://till.local:9000", cfg.APIBaseURL)
	require.Equal(t, 3*time.Second, cfg.RequestTimeout)
	require.Equal(t, "tok-123", cfg.SessionToken)
	require.Equal(t, int64(42), cfg.SessionUserID)
}
