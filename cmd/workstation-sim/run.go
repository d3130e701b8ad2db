package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"workstation-engine/internal/config"
	"workstation-engine/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "启动模拟器和 API 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		// 先恢复进行中的实例，再放入初始资源
		if err := a.authority.Restore(); err != nil {
			logger.Warn("恢复进行中的实例失败", "error", err)
		}
		a.seed()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		go a.hub.Run()
		go a.authority.Run(ctx, cfg.TickInterval)

		server := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: web.NewServer(a.authority, a.registry, a.inv, a.tracker, a.hub, logger).Routes(),
		}
		go func() {
			logger.Info("API 服务器启动", "addr", cfg.ListenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("API 服务器启动失败", "error", err)
				cancel()
			}
		}()

		logger.Info("=== 工作站模拟器启动 ===", "workstations", len(cfg.Workstations))
		<-ctx.Done()
		logger.Info("接收到停机信号，正在优雅关闭...")

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("API 服务器关闭超时", "error", err)
		}
		logger.Info("模拟结束，系统已安全退出。")
		return nil
	},
}
