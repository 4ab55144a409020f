package worker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"course-signup/config"
)

// AMQPQueue 基于 RabbitMQ 的任务队列
// API 进程只负责投递，cmd/worker 进程负责消费
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewAMQPQueue 连接 RabbitMQ 并声明持久化队列
func NewAMQPQueue(cfg *config.AMQPConfig, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("打开 RabbitMQ channel 失败: %w", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("声明队列失败: %w", err)
	}

	logger.Info("通知队列已连接",
		zap.String("driver", "amqp"),
		zap.String("queue", cfg.Queue),
	)

	return &AMQPQueue{conn: conn, channel: ch, queue: cfg.Queue, logger: logger}, nil
}

// Submit 发布任务到默认 exchange，路由键为队列名
func (q *AMQPQueue) Submit(ctx context.Context, task Task) error {
	body, err := encodeTask(task)
	if err != nil {
		return err
	}

	err = q.channel.PublishWithContext(ctx,
		"",
		q.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("发布任务失败: %w", err)
	}
	return nil
}

// Consume 阻塞消费直到 ctx 取消或连接关闭
// 失败的任务不重新入队，结果已记录在报名记录上，由管理员手动重投
func (q *AMQPQueue) Consume(ctx context.Context, handler Handler, onComplete CompletionFunc) error {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置 Qos 失败: %w", err)
	}

	msgs, err := q.channel.Consume(
		q.queue,
		"",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	q.logger.Info("开始消费通知任务", zap.String("queue", q.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("RabbitMQ 消费通道已关闭")
			}
			q.deliver(ctx, d, handler, onComplete)
		}
	}
}

func (q *AMQPQueue) deliver(ctx context.Context, d amqp.Delivery, handler Handler, onComplete CompletionFunc) {
	task, err := decodeTask(d.Body)
	if err != nil {
		q.logger.Warn("丢弃无法解析的任务", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	err = handler(ctx, task)
	if err != nil {
		q.logger.Warn("后台任务失败",
			zap.String("registration_id", task.RegistrationID),
			zap.Error(err),
		)
	}
	_ = d.Ack(false)

	if onComplete != nil {
		onComplete(Result{Task: task, Err: err})
	}
}

// Close 关闭 channel 与连接
func (q *AMQPQueue) Close() error {
	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		if err := q.conn.Close(); err != nil {
			return err
		}
	}
	q.logger.Info("RabbitMQ 连接已关闭")
	return nil
}
