package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	require.Equal(t, "BumaView", cfg.GetAppName())
	require.Equal(t, "http://localhost:8080", cfg.GetAPIBaseURL())
	require.Equal(t, "http://localhost:8001", cfg.GetAIBaseURL())
	require.Equal(t, 30*time.Minute, cfg.GetIdleTimeout())
	require.Equal(t, 5*time.Minute, cfg.GetWarningCountdown())
	require.Equal(t, 5*time.Minute, cfg.GetExpiryCheckInterval())
	require.Equal(t, 10*time.Minute, cfg.GetExpiringSoonWindow())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BUMAVIEW_API_URL", "https://api.bumaview.example")
	t.Setenv("BUMAVIEW_IDLE_TIMEOUT", "45m")

	cfg := New()
	require.Equal(t, "https://api.bumaview.example", cfg.GetAPIBaseURL())
	require.Equal(t, 45*time.Minute, cfg.GetIdleTimeout())
}

func TestDurationEnvFallsBackOnGarbage(t *testing.T) {
	t.Setenv("BUMAVIEW_IDLE_TIMEOUT", "not-a-duration")
	require.Equal(t, 30*time.Minute, Session{}.GetIdleTimeout())
}
