package main

import (
	"Courier/internal/api/config"
	"Courier/internal/pkg/logger"
	"Courier/internal/pkg/notify"
	"Courier/internal/wire"
	"context"
	"errors"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logger.InitLogger()

	// 依赖注入
	toaster := &notify.LogToaster{}
	notifier := &notify.DesktopNotifier{}
	app, err := wire.BuildApplication(cfg, nil, toaster, notifier)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	// 身份凭证由登录流程下发，本地联调通过环境变量注入
	userID := os.Getenv("COURIER_USER_ID")
	token := os.Getenv("COURIER_TOKEN")
	if userID == "" || token == "" {
		log.Error("Fatal error: COURIER_USER_ID / COURIER_TOKEN not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 实时连接
	if err = app.Connect(userID, token); err != nil {
		log.Error("Fatal error: failed to establish realtime connection", "err", err)
		panic(err)
	}
	log.Info("Realtime connection established", "userID", userID)

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		app.Conversations.Close()
		app.Manager.Disconnect()
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}
