package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/bootstrap"
	"github.com/pu-ac-cn/qual-backend/internal/config"
	"github.com/pu-ac-cn/qual-backend/internal/redis"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认读取 .env")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("服务异常退出: %v", err)
	}
}

func run(cfg *config.Config) error {
	rt, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	// Redis 未配置时不启用限流
	if err := redis.Init(&cfg.Redis); err != nil {
		return err
	}
	defer redis.Close()

	a, err := rt.App()
	if err != nil {
		return err
	}

	// 开发环境启动时自动迁移，生产环境使用 qualctl install
	if !cfg.IsProduction() {
		if err := bootstrap.Migrate(a); err != nil {
			return err
		}
		logger.Info("数据库迁移完成")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("服务启动", zap.String("addr", srv.Addr), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("正在关闭服务...")

		// 优雅关闭，等待 5 秒
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("服务已关闭")
	return nil
}
