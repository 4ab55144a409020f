// 通知 worker：notify.driver=amqp 时从 RabbitMQ 消费报名通知任务
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"course-signup/config"
	"course-signup/internal/repository"
	"course-signup/internal/service"
	"course-signup/internal/worker"
	"course-signup/pkg/database"
	"course-signup/pkg/jwt"
	"course-signup/pkg/line"
	applogger "course-signup/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
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

	if cfg.Notify.Driver != "amqp" {
		logger.Fatal("worker 仅在 notify.driver=amqp 时使用", zap.String("driver", cfg.Notify.Driver))
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	queue, err := worker.NewAMQPQueue(&cfg.Notify.AMQP, logger)
	if err != nil {
		logger.Fatal("连接 RabbitMQ 失败", zap.Error(err))
	}

	lineClient := line.NewClient(&cfg.Line, logger)
	svc := service.NewService(cfg, repository.NewRepository(db), service.Deps{
		JWT:        jwt.NewManager(&cfg.Auth),
		Line:       lineClient,
		Dispatcher: queue, // 重投时直接发布回同一队列
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("通知 worker 已启动", zap.String("queue", cfg.Notify.AMQP.Queue))
	if err := queue.Consume(ctx, svc.Notification.Process, worker.LogCompletion(logger)); err != nil {
		logger.Error("消费异常退出", zap.Error(err))
	}

	queue.Close()
	lineClient.Close()
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	logger.Info("通知 worker 已退出")
}
