package cache

import (
	"context"
	"time"
)

// Cache 是链上只读数据的缓存抽象。token 的 decimals、symbol 等元数据
// 几乎不会变化，缓存它们能显著减少 RPC 调用。
type Cache interface {
	// Get 返回 key 对应的值；第二个返回值指示是否命中。
	Get(ctx context.Context, key string) (string, bool, error)
	// Set 写入一个带过期时间的键值。ttl 为 0 表示不过期。
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Close 释放底层资源。
	Close() error
}
