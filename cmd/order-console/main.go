package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/betbot/orderconsole/internal/console"
	"github.com/betbot/orderconsole/internal/infrastructure/rest"
	"github.com/betbot/orderconsole/internal/infrastructure/session"
	pushws "github.com/betbot/orderconsole/internal/infrastructure/websocket"
	"github.com/betbot/orderconsole/internal/metrics"
	"github.com/betbot/orderconsole/internal/tui"
	"github.com/betbot/orderconsole/pkg/config"
	"github.com/betbot/orderconsole/pkg/logger"
	sdkhttp "github.com/betbot/orderconsole/pkg/sdk/http"
	"github.com/betbot/orderconsole/pkg/shutdown"
)

const gracefulShutdownPeriod = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	apiURL := flag.String("api", "", "REST API 地址（覆盖配置）")
	wsURL := flag.String("ws", "", "推送通道地址（覆盖配置）")
	userID := flag.String("user", "", "启动用户 ID（覆盖会话记录）")
	pushMode := flag.String("mode", "", "推送模式: per-order / shared")
	flag.Parse()

	// .env 可选
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, *apiURL, *wsURL, *pushMode); err != nil {
		fmt.Fprintf(os.Stderr, "参数无效: %v\n", err)
		os.Exit(1)
	}

	// 终端由界面独占，日志只写文件
	if err := logger.Init(logger.Config{
		Level:          cfg.LogLevel,
		OutputFile:     cfg.LogFile,
		MaxSize:        50,
		MaxBackups:     3,
		MaxAge:         7,
		Compress:       true,
		DisableConsole: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	logger.Infof("启动 order-console: api=%s ws=%s mode=%s", cfg.APIBaseURL, cfg.WSBaseURL, cfg.PushMode)

	if err := run(cfg, *userID); err != nil {
		logger.Errorf("运行失败: %v", err)
		fmt.Fprintf(os.Stderr, "运行失败: %v（详见 %s）\n", err, logger.GetCurrentLogFile())
		os.Exit(1)
	}
}

// applyFlags 命令行参数优先级最高，覆盖后重新校验
func applyFlags(cfg *config.Config, apiURL, wsURL, mode string) error {
	if v := strings.TrimSpace(apiURL); v != "" {
		cfg.SetAPIBaseURL(v)
	}
	if v := strings.TrimSpace(wsURL); v != "" {
		cfg.SetWSBaseURL(v)
	}
	if v := strings.TrimSpace(mode); v != "" {
		cfg.PushMode = strings.ToLower(v)
	}
	return cfg.Validate()
}

func run(cfg *config.Config, explicitUser string) error {
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if cfg.MetricsAddr != "" {
		addr, err := metrics.StartAsync(rootCtx, cfg.MetricsAddr)
		if err != nil {
			return errors.Wrap(err, "启动 debug 服务失败")
		}
		logger.Infof("debug 服务: http://%s/debug/vars", addr)
	}

	store, storeCloser, err := session.Open(cfg)
	if err != nil {
		return err
	}

	api := rest.NewClient(sdkhttp.NewClient(cfg.APIBaseURL, sdkhttp.Options{Timeout: cfg.HTTPTimeout}))

	wsCfg := pushws.DefaultConfig(cfg.WSBaseURL)
	wsCfg.HandshakeTimeout = cfg.HandshakeTimeout
	opener := console.NewWebSocketOpener(rootCtx, wsCfg)

	ctrl := console.New(console.Options{
		API:      api,
		Opener:   opener,
		Session:  store,
		PushMode: cfg.PushMode,
		UserID:   session.ResolveUserID(explicitUser, store, cfg.DefaultUserID),
	})

	ctrlCtx, ctrlCancel := context.WithCancel(rootCtx)
	go func() {
		if err := ctrl.Run(ctrlCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("控制台退出: %v", err)
		}
	}()

	sm := shutdown.NewManager()
	sm.OnShutdown("console", func(ctx context.Context) {
		ctrlCancel()
		select {
		case <-ctrl.Done():
		case <-ctx.Done():
		}
	})
	sm.OnShutdown("session", func(ctx context.Context) {
		// 控制台退出前可能还在写会话
		select {
		case <-ctrl.Done():
		case <-ctx.Done():
		}
		if err := storeCloser.Close(); err != nil {
			logger.Warnf("关闭会话存储失败: %v", err)
		}
	})

	p := tea.NewProgram(
		tui.NewModel(ctrl, tui.Options{ToastTTL: cfg.ToastTTL}),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)
	_, runErr := p.Run()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
	defer shutdownCancel()
	sm.Shutdown(shutdownCtx)

	if runErr != nil && rootCtx.Err() == nil {
		return errors.Wrap(runErr, "界面运行失败")
	}
	return nil
}
