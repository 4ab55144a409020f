// Package worker 报名后的后台通知任务队列。
//
// 提交接口立即返回，任务由独立的 worker 执行；执行结果通过完成回调上报，
// 不会阻塞或影响 HTTP 响应。
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("任务队列已满")
	ErrQueueClosed = errors.New("任务队列已关闭")
)

// Task 一条报名的后台通知任务
type Task struct {
	RegistrationID string `json:"registration_id"`
}

// Result 任务执行结果
type Result struct {
	Task Task
	Err  error
}

// Handler 执行任务
type Handler func(ctx context.Context, task Task) error

// CompletionFunc 任务完成回调
type CompletionFunc func(Result)

// Dispatcher 任务投递接口
type Dispatcher interface {
	Submit(ctx context.Context, task Task) error
	Close() error
}

// LogCompletion 把任务结果写入日志的完成回调
func LogCompletion(logger *zap.Logger) CompletionFunc {
	return func(r Result) {
		if r.Err != nil {
			logger.Warn("通知任务完成（失败）",
				zap.String("registration_id", r.Task.RegistrationID),
				zap.Error(r.Err),
			)
			return
		}
		logger.Info("通知任务完成", zap.String("registration_id", r.Task.RegistrationID))
	}
}

func encodeTask(t Task) ([]byte, error) {
	return json.Marshal(t)
}

func decodeTask(body []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, fmt.Errorf("解析任务失败: %w", err)
	}
	if t.RegistrationID == "" {
		return Task{}, errors.New("任务缺少 registration_id")
	}
	return t, nil
}
