package seedstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 Redis 种子存储
// =============================================================================

// RedisConfig Redis 存储配置
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`
	// 密码
	Password string `yaml:"password" json:"password"`
	// 数据库编号
	DB int `yaml:"db" json:"db"`
	// 种子键名
	Key string `yaml:"key" json:"key"`
}

// DefaultRedisConfig 返回默认 Redis 存储配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		Key:  "voiceloop:seed",
	}
}

// RedisStore 基于 Redis 的 Store 实现，供多进程部署共享同一个种子槽位。
// SET 原子替换，GETDEL 原子读取并清除，天然满足 last-write-wins 与
// 读到即消费的约束。
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 存储并验证连接
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Key == "" {
		cfg.Key = "voiceloop:seed"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := &RedisStore{
		client: client,
		key:    cfg.Key,
		logger: logger.With(zap.String("component", "seedstore_redis")),
	}
	s.logger.Info("redis seed store initialized", zap.String("addr", cfg.Addr), zap.String("key", cfg.Key))
	return s, nil
}

// Write 实现 Store
func (s *RedisStore) Write(ctx context.Context, payload string) error {
	if payload == "" {
		return errMissingPayload()
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		s.logger.Error("seed write failed", zap.Error(err))
		return fmt.Errorf("seed write failed: %w", err)
	}
	s.logger.Info("context injected", zap.Int("payload_len", len(payload)))
	return nil
}

// ReadAndConsume 实现 Store
func (s *RedisStore) ReadAndConsume(ctx context.Context) (string, bool, error) {
	val, err := s.client.GetDel(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		s.logger.Error("seed read failed", zap.Error(err))
		return "", false, fmt.Errorf("seed read failed: %w", err)
	}
	return val, true, nil
}

// Ping 探测 Redis 连通性，用于就绪检查
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
