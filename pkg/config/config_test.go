package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ORDER_CONSOLE_API_URL", "ORDER_CONSOLE_WS_URL", "ORDER_CONSOLE_PUSH_MODE",
		"ORDER_CONSOLE_USER_ID", "ORDER_CONSOLE_HTTP_TIMEOUT", "ORDER_CONSOLE_WS_HANDSHAKE_TIMEOUT",
		"ORDER_CONSOLE_TOAST_SECONDS", "ORDER_CONSOLE_LOG_LEVEL", "ORDER_CONSOLE_LOG_FILE",
		"ORDER_CONSOLE_SESSION_DIR", "ORDER_CONSOLE_SESSION_BACKEND", "ORDER_CONSOLE_METRICS_ADDR",
	} {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults 没有配置文件和环境变量时使用默认值
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost/ws", cfg.WSBaseURL)
	assert.Equal(t, PushModePerOrder, cfg.PushMode)
	assert.Equal(t, "user123", cfg.DefaultUserID)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, SessionBackendJSON, cfg.SessionBackend)
	assert.Empty(t, cfg.MetricsAddr)
}

// TestLoad_EnvOverridesFile 环境变量优先于配置文件
func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "console.yaml")
	content := `
api:
  base_url: "https://shop.example.com/"
  timeout_seconds: 7
push:
  mode: shared
user_id: alice
session:
  backend: badger
metrics_addr: "127.0.0.1:6060"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("ORDER_CONSOLE_USER_ID", "bob")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.APIBaseURL, "结尾的 / 应该被去掉")
	assert.Equal(t, "wss://shop.example.com/ws", cfg.WSBaseURL)
	assert.Equal(t, PushModeShared, cfg.PushMode)
	assert.Equal(t, "bob", cfg.DefaultUserID)
	assert.Equal(t, 7*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, SessionBackendBadger, cfg.SessionBackend)
	assert.Equal(t, "127.0.0.1:6060", cfg.MetricsAddr)
}

func TestLoad_InvalidPushMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_CONSOLE_PUSH_MODE", "socketio")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "console.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDeriveWSURL(t *testing.T) {
	cases := map[string]string{
		"":                          "ws://localhost/ws",
		"http://localhost:8080":     "ws://localhost:8080/ws",
		"https://shop.example.com":  "wss://shop.example.com/ws",
		"https://shop.example.com/": "wss://shop.example.com/ws",
		"/relative":                 "ws://localhost/ws",
	}
	for in, want := range cases {
		assert.Equal(t, want, DeriveWSURL(in), "input %q", in)
	}
}

func TestLoad_WSURLMustBeWebSocket(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_CONSOLE_WS_URL", "http://localhost/ws")

	_, err := Load("")
	require.Error(t, err)
}

// TestSetAPIBaseURL_KeepsExplicitWS 显式配置的推送地址不随 API 地址变化
func TestSetAPIBaseURL_KeepsExplicitWS(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_CONSOLE_WS_URL", "wss://push.example.com/socket/")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.WSDerived)

	cfg.SetAPIBaseURL("http://api.example.com/")
	assert.Equal(t, "http://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://push.example.com/socket", cfg.WSBaseURL)
}

// TestSetAPIBaseURL_RederivesWS 推导出来的推送地址跟随 API 地址
func TestSetAPIBaseURL_RederivesWS(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.WSDerived)

	cfg.SetAPIBaseURL("https://api.example.com")
	assert.Equal(t, "wss://api.example.com/ws", cfg.WSBaseURL)

	cfg.SetWSBaseURL("ws://push.local/ws")
	cfg.SetAPIBaseURL("http://other.example.com")
	assert.Equal(t, "ws://push.local/ws", cfg.WSBaseURL)
}
