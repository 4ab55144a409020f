package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTaskTimeout 单个任务的默认执行时限
const DefaultTaskTimeout = 30 * time.Second

// MemoryOptions 进程内队列参数
type MemoryOptions struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	OnComplete  CompletionFunc
}

// MemoryQueue 有界 channel + 固定数量 worker 的进程内队列
// 进程退出前调用 Close 等待已入队任务执行完
type MemoryQueue struct {
	tasks      chan Task
	handler    Handler
	onComplete CompletionFunc
	timeout    time.Duration
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMemoryQueue 创建并启动进程内队列
func NewMemoryQueue(handler Handler, opts MemoryOptions, logger *zap.Logger) *MemoryQueue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}

	q := &MemoryQueue{
		tasks:      make(chan Task, opts.QueueSize),
		handler:    handler,
		onComplete: opts.OnComplete,
		timeout:    opts.TaskTimeout,
		logger:     logger,
	}

	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.loop(i)
	}

	logger.Info("通知队列已启动",
		zap.String("driver", "memory"),
		zap.Int("workers", opts.Workers),
		zap.Int("queue_size", opts.QueueSize),
	)
	return q
}

// Submit 入队，队列满时立即返回 ErrQueueFull
func (q *MemoryQueue) Submit(_ context.Context, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 停止接收新任务并等待队列清空
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("通知队列已关闭")
	return nil
}

func (q *MemoryQueue) loop(id int) {
	defer q.wg.Done()
	for task := range q.tasks {
		err := q.run(task)
		if err != nil {
			q.logger.Warn("后台任务失败",
				zap.Int("worker", id),
				zap.String("registration_id", task.RegistrationID),
				zap.Error(err),
			)
		}
		if q.onComplete != nil {
			q.onComplete(Result{Task: task, Err: err})
		}
	}
}

func (q *MemoryQueue) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("任务 panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	return q.handler(ctx, task)
}
