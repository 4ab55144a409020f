package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"course-signup/config"
)

// Client Redis 客户端封装
// 用于 LINE 登录 state 校验与接口限流；连接不可用时调用方降级
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── LINE 登录 state ──

const loginStatePrefix = "line:login_state:"

// ErrStateNotFound state 不存在、已使用或已过期
var ErrStateNotFound = errors.New("登录 state 无效或已过期")

// NewLoginState 生成一次性 state 并保存 ttl
func (c *Client) NewLoginState(ctx context.Context, ttl time.Duration) (string, error) {
	state := uuid.NewString()
	if err := c.rdb.Set(ctx, loginStatePrefix+state, "1", ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// ConsumeLoginState 校验并删除 state，只能使用一次
func (c *Client) ConsumeLoginState(ctx context.Context, state string) error {
	if state == "" {
		return ErrStateNotFound
	}
	n, err := c.rdb.Del(ctx, loginStatePrefix+state).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateNotFound
	}
	return nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)
	minScore := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", minScore)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
