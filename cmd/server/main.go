package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"course-signup/config"
	"course-signup/internal/api/handler"
	"course-signup/internal/api/router"
	"course-signup/internal/repository"
	"course-signup/internal/service"
	"course-signup/internal/worker"
	"course-signup/pkg/database"
	"course-signup/pkg/jwt"
	"course-signup/pkg/line"
	applogger "course-signup/pkg/logger"
	"course-signup/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("notify_driver", cfg.Notify.Driver),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不校验登录 state，不限流）
	var states service.StateStore
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，登录 state 校验与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		states = rdb
	}

	// 5. 外部客户端
	jwtMgr := jwt.NewManager(&cfg.Auth)
	lineClient := line.NewClient(&cfg.Line, logger)

	// 6. 依赖注入: Repository → Queue → Service → Handler
	// 队列的执行函数依赖 NotificationService，而 Service 又依赖队列，这里延迟绑定
	repo := repository.NewRepository(db)

	var notify worker.Handler
	dispatcher, err := newDispatcher(cfg, func(ctx context.Context, task worker.Task) error {
		return notify(ctx, task)
	}, logger)
	if err != nil {
		logger.Fatal("初始化通知队列失败", zap.Error(err))
	}

	svc := service.NewService(cfg, repo, service.Deps{
		JWT:        jwtMgr,
		Line:       lineClient,
		States:     states,
		Dispatcher: dispatcher,
	}, logger)
	notify = svc.Notification.Process

	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// HTTP 停止后再关闭队列，等待已入队的通知发送完
	if err := dispatcher.Close(); err != nil {
		logger.Error("关闭通知队列异常", zap.Error(err))
	}

	lineClient.Close()

	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// newDispatcher 按 notify.driver 创建任务队列
// memory：进程内执行；amqp：只投递，由 cmd/worker 消费
func newDispatcher(cfg *config.Config, handle worker.Handler, logger *zap.Logger) (worker.Dispatcher, error) {
	switch cfg.Notify.Driver {
	case "amqp":
		return worker.NewAMQPQueue(&cfg.Notify.AMQP, logger)
	default:
		return worker.NewMemoryQueue(handle, worker.MemoryOptions{
			Workers:    cfg.Notify.Workers,
			QueueSize:   cfg.Notify.QueueSize,
			TaskTimeout: cfg.Notify.TaskTimeout,
			OnComplete:  worker.LogCompletion(logger),
		}, logger), nil
	}
}
