package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/orderconsole/pkg/config"
)

func loadClean(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for _, k := range []string{
		"ORDER_CONSOLE_API_URL", "ORDER_CONSOLE_WS_URL", "ORDER_CONSOLE_PUSH_MODE",
		"ORDER_CONSOLE_USER_ID", "ORDER_CONSOLE_SESSION_BACKEND",
	} {
		t.Setenv(k, env[k])
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestApplyFlags_APIKeepsConfiguredWS(t *testing.T) {
	cfg := loadClean(t, map[string]string{"ORDER_CONSOLE_WS_URL": "wss://push.example.com/socket"})

	require.NoError(t, applyFlags(cfg, "http://api.example.com", "", ""))
	assert.Equal(t, "http://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://push.example.com/socket", cfg.WSBaseURL)
}

func TestApplyFlags_APIDerivesDefaultWS(t *testing.T) {
	cfg := loadClean(t, nil)

	require.NoError(t, applyFlags(cfg, "https://api.example.com/", "", ""))
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://api.example.com/ws", cfg.WSBaseURL)
}

func TestApplyFlags_WSAndMode(t *testing.T) {
	cfg := loadClean(t, nil)

	require.NoError(t, applyFlags(cfg, "http://api.example.com", "ws://push.local/ws/", "SHARED"))
	assert.Equal(t, "ws://push.local/ws", cfg.WSBaseURL)
	assert.Equal(t, config.PushModeShared, cfg.PushMode)
}

func TestApplyFlags_Invalid(t *testing.T) {
	cfg := loadClean(t, nil)
	assert.Error(t, applyFlags(cfg, "", "", "socketio"))

	cfg = loadClean(t, nil)
	assert.Error(t, applyFlags(cfg, "", "http://not-a-socket", ""))
}
