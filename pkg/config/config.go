package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 推送模式
const (
	PushModePerOrder = "per-order" // 每个订单一条 WebSocket（默认）
	PushModeShared   = "shared"    // 所有订单共用一条连接，收到更新后整表刷新
)

// 会话存储后端
const (
	SessionBackendJSON   = "json"
	SessionBackendBadger = "badger"
)

const (
	defaultAPIURL           = "http://localhost"
	defaultUserID           = "user123"
	defaultWSURL            = "ws://localhost/ws"
	defaultHTTPTimeout      = 30 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultToastTTL         = 5 * time.Second
)

// Config 应用配置
type Config struct {
	APIBaseURL       string        // REST API 基础地址
	WSBaseURL        string        // 推送通道地址
	PushMode         string        // per-order / shared
	DefaultUserID    string        // 启动时的用户 ID（会话存储里有记录时以记录为准）
	HTTPTimeout      time.Duration // REST 请求超时
	HandshakeTimeout time.Duration // WebSocket 握手超时
	ToastTTL         time.Duration // 界面通知显示时长
	LogLevel         string        // 日志级别
	LogFile          string        // 日志文件路径
	SessionDir       string        // 会话存储目录
	SessionBackend   string        // json / badger
	MetricsAddr      string        // expvar/pprof 监听地址，空则不启动

	// WSDerived 推送地址由 API 地址推导（未显式配置）
	WSDerived bool
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	API struct {
		BaseURL        string `yaml:"base_url" json:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"api" json:"api"`
	Push struct {
		URL                     string `yaml:"url" json:"url"`
		Mode                    string `yaml:"mode" json:"mode"`
		HandshakeTimeoutSeconds int    `yaml:"handshake_timeout_seconds" json:"handshake_timeout_seconds"`
	} `yaml:"push" json:"push"`
	UserID string `yaml:"user_id" json:"user_id"`
	UI     struct {
		ToastSeconds int `yaml:"toast_seconds" json:"toast_seconds"`
	} `yaml:"ui" json:"ui"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`
	Session  struct {
		Dir     string `yaml:"dir" json:"dir"`
		Backend string `yaml:"backend" json:"backend"`
	} `yaml:"session" json:"session"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
// filePath 为空时只读环境变量
func Load(filePath string) (*Config, error) {
	cf := &ConfigFile{}
	if filePath != "" {
		loaded, err := loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
		cf = loaded
	}

	cfg := &Config{
		APIBaseURL:       trimURL(getEnv("ORDER_CONSOLE_API_URL", orDefault(cf.API.BaseURL, defaultAPIURL))),
		PushMode:         strings.ToLower(getEnv("ORDER_CONSOLE_PUSH_MODE", orDefault(cf.Push.Mode, PushModePerOrder))),
		DefaultUserID:    getEnv("ORDER_CONSOLE_USER_ID", orDefault(cf.UserID, defaultUserID)),
		HTTPTimeout:      parseSecondsEnv("ORDER_CONSOLE_HTTP_TIMEOUT", secondsOr(cf.API.TimeoutSeconds, defaultHTTPTimeout)),
		HandshakeTimeout: parseSecondsEnv("ORDER_CONSOLE_WS_HANDSHAKE_TIMEOUT", secondsOr(cf.Push.HandshakeTimeoutSeconds, defaultHandshakeTimeout)),
		ToastTTL:         parseSecondsEnv("ORDER_CONSOLE_TOAST_SECONDS", secondsOr(cf.UI.ToastSeconds, defaultToastTTL)),
		LogLevel:         getEnv("ORDER_CONSOLE_LOG_LEVEL", orDefault(cf.LogLevel, "info")),
		LogFile:          getEnv("ORDER_CONSOLE_LOG_FILE", orDefault(cf.LogFile, "logs/order-console.log")),
		SessionDir:       getEnv("ORDER_CONSOLE_SESSION_DIR", orDefault(cf.Session.Dir, "data/session")),
		SessionBackend:   strings.ToLower(getEnv("ORDER_CONSOLE_SESSION_BACKEND", orDefault(cf.Session.Backend, SessionBackendJSON))),
		MetricsAddr:      getEnv("ORDER_CONSOLE_METRICS_ADDR", cf.MetricsAddr),
	}

	wsURL := getEnv("ORDER_CONSOLE_WS_URL", cf.Push.URL)
	if wsURL == "" {
		wsURL = DeriveWSURL(cfg.APIBaseURL)
		cfg.WSDerived = true
	}
	cfg.WSBaseURL = trimURL(wsURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.PushMode {
	case PushModePerOrder, PushModeShared:
	default:
		return fmt.Errorf("无效的推送模式 %q（支持 %s, %s）", c.PushMode, PushModePerOrder, PushModeShared)
	}
	switch c.SessionBackend {
	case SessionBackendJSON, SessionBackendBadger:
	default:
		return fmt.Errorf("无效的会话存储后端 %q（支持 %s, %s）", c.SessionBackend, SessionBackendJSON, SessionBackendBadger)
	}
	if strings.TrimSpace(c.DefaultUserID) == "" {
		return fmt.Errorf("默认用户 ID 不能为空")
	}
	api, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("无效的 API 地址 %q: %w", c.APIBaseURL, err)
	}
	if api.Scheme != "http" && api.Scheme != "https" {
		return fmt.Errorf("API 地址必须是 http:// 或 https://，得到 %q", c.APIBaseURL)
	}
	u, err := url.Parse(c.WSBaseURL)
	if err != nil {
		return fmt.Errorf("无效的推送地址 %q: %w", c.WSBaseURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("推送地址必须是 ws:// 或 wss://，得到 %q", c.WSBaseURL)
	}
	return nil
}

// SetAPIBaseURL 覆盖 API 地址；推送地址是推导出来的才跟着重新推导
func (c *Config) SetAPIBaseURL(apiBaseURL string) {
	c.APIBaseURL = trimURL(apiBaseURL)
	if c.WSDerived {
		c.WSBaseURL = DeriveWSURL(c.APIBaseURL)
	}
}

// SetWSBaseURL 显式指定推送地址
func (c *Config) SetWSBaseURL(wsURL string) {
	c.WSBaseURL = trimURL(wsURL)
	c.WSDerived = false
}

// DeriveWSURL 由 API 地址推导默认推送地址：
// https -> wss，其余 -> ws，路径固定为 /ws；API 地址为空时返回 ws://localhost/ws
func DeriveWSURL(apiBaseURL string) string {
	if apiBaseURL == "" {
		return defaultWSURL
	}
	u, err := url.Parse(apiBaseURL)
	if err != nil || u.Host == "" {
		return defaultWSURL
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return scheme + "://" + u.Host + "/ws"
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", filepath.Ext(filePath))
	}
	return &configFile, nil
}

func trimURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func secondsOr(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseSecondsEnv 读取秒数环境变量，非法或非正数时使用默认值
func parseSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return time.Duration(parsed) * time.Second
}
