package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatemail/internal/config"
)

// ErrMutateConflict 乐观事务重试耗尽
var ErrMutateConflict = errors.New("cache mutate conflict")

type mutationOp int

const (
	mutationKeep mutationOp = iota
	mutationSet
	mutationDelete
)

// Mutation 读改写的结果动作
type Mutation struct {
	op    mutationOp
	value []byte
	ttl   time.Duration
}

// Keep 不修改当前值
func Keep() Mutation {
	return Mutation{op: mutationKeep}
}

// Put 以指定 TTL 写入新值，ttl<=0 表示不过期
func Put(value []byte, ttl time.Duration) Mutation {
	return Mutation{op: mutationSet, value: value, ttl: ttl}
}

// Remove 删除当前 key
func Remove() Mutation {
	return Mutation{op: mutationDelete}
}

// MutateFunc 根据当前值决定写入动作；可能因冲突被多次调用
type MutateFunc func(current []byte, exists bool) (Mutation, error)

// Store 带过期时间的键值存储
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Incr 固定窗口计数，首次写入时设置窗口过期；返回当前计数与剩余 TTL
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Mutate 对单个 key 做原子读改写
	Mutate(ctx context.Context, key string, fn MutateFunc) error
	Ping(ctx context.Context) error
	Close() error
}

// NewStore 根据配置选择 Redis 或进程内存储
func NewStore(cfg *config.RedisConfig) Store {
	if cfg != nil && cfg.Enabled {
		return NewRedisStore(cfg)
	}
	prefix := ""
	if cfg != nil {
		prefix = cfg.Prefix
	}
	return NewMemoryStore(prefix)
}

func buildKey(prefix, key string) string {
	trimmed := strings.TrimSpace(key)
	if prefix == "" {
		return trimmed
	}
	if trimmed == "" {
		return prefix
	}
	return fmt.Sprintf("%s:%s", prefix, trimmed)
}

func normalizePrefix(raw string) string {
	prefix := strings.TrimSpace(raw)
	if prefix == "" {
		return "gm"
	}
	return prefix
}
