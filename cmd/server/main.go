package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Naveen-Pal/timetable-2024-25/config"
	"github.com/Naveen-Pal/timetable-2024-25/internal/api/handler"
	"github.com/Naveen-Pal/timetable-2024-25/internal/api/router"
	"github.com/Naveen-Pal/timetable-2024-25/internal/repository"
	"github.com/Naveen-Pal/timetable-2024-25/internal/service"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/database"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/jwt"
	applogger "github.com/Naveen-Pal/timetable-2024-25/pkg/logger"
	"github.com/Naveen-Pal/timetable-2024-25/pkg/redis"
)

const (
	seedTimeout     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Getenv("TIMETABLE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("服务异常退出", zap.Error(err))
	}
}

// run 组装依赖并阻塞到收到退出信号
// 顺序：数据库 → 迁移 → Redis（可选）→ Service → 目录播种 → 路由 → HTTP
func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("课表服务启动中",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("schedule_source", cfg.Schedule.Source),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("连接数据库: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取 sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, logger); err != nil {
		return fmt.Errorf("数据库迁移: %w", err)
	}

	rdb := connectRedis(cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := service.NewService(cfg, repository.NewRepository(db), jwtMgr, rdb, logger)

	if err := seedCatalog(svc.Catalog, &cfg.Catalog); err != nil {
		return fmt.Errorf("播种课程目录: %w", err)
	}

	engine := router.Setup(cfg, handler.NewHandler(svc), jwtMgr, rdb, db, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(srv, logger)
}

// connectRedis Redis 未启用或连接失败时返回 nil：会话改存内存，且不做速率限制
func connectRedis(cfg *config.Config, logger *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级为内存会话", zap.Error(err))
		return nil
	}
	return rdb
}

func seedCatalog(catalog service.CatalogService, cfg *config.CatalogConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()
	return catalog.SeedFromFiles(ctx, cfg.CoursesFile, cfg.SlotsFile)
}

// serve 启动 HTTP 服务，SIGINT/SIGTERM 时优雅关闭
func serve(srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("收到关闭信号", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("关闭 HTTP 服务: %w", err)
	}
	logger.Info("服务器已关闭")
	return nil
}
