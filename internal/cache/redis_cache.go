package cache

import (
	"context"
	stdErrors "errors"
	"time"

	xerrors "AgentKit-EVM/internal/errors"

	"github.com/redis/go-redis/v9"
)

// RedisCache 把缓存托管到 Redis，适合多副本部署共享 token 元数据。
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisConfig 是 Redis 缓存的连接配置。
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix 是键前缀，避免与共用实例中的其他业务冲突。
	Prefix string `json:"prefix"`
}

// NewRedisCache 建立 Redis 连接并验证可达性。
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "agentkit:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 Redis")
	}

	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Get 返回 key 对应的值。
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取缓存失败")
	}
	return value, true, nil
}

// Set 写入一个带过期时间的键值。
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入缓存失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
