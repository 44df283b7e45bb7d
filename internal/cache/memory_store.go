package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = time.Minute

// MemoryStore 进程内存储，单实例部署与测试使用
type MemoryStore struct {
	mu     sync.Mutex
	items  *gocache.Cache
	prefix string
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		items:  gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		prefix: normalizePrefix(prefix),
	}
}

func (s *MemoryStore) get(key string) ([]byte, bool) {
	raw, ok := s.items.Get(key)
	if !ok {
		return nil, false
	}
	value, ok := raw.([]byte)
	return value, ok
}

func (s *MemoryStore) set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.items.Set(key, value, ttl)
}

// GetJSON 获取 JSON 值
func (s *MemoryStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	value, ok := s.get(buildKey(s.prefix, key))
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(value, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 值
func (s *MemoryStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.set(buildKey(s.prefix, key), payload, ttl)
	s.mu.Unlock()
	return nil
}

// Del 删除 key
func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.items.Delete(buildKey(s.prefix, key))
	}
	return nil
}

// Incr 固定窗口计数
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := buildKey(s.prefix, key)
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, expiresAt, ok := s.items.GetWithExpiration(fullKey)
	if !ok {
		s.set(fullKey, []byte("1"), window)
		return 1, window, nil
	}
	current, _ := strconv.ParseInt(string(raw.([]byte)), 10, 64)
	current++
	ttl := window
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
	}
	s.set(fullKey, []byte(strconv.FormatInt(current, 10)), ttl)
	return current, ttl, nil
}

// Mutate 在互斥锁内完成读改写
func (s *MemoryStore) Mutate(_ context.Context, key string, fn MutateFunc) error {
	fullKey := buildKey(s.prefix, key)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.get(fullKey)
	mutation, err := fn(current, exists)
	if err != nil {
		return err
	}
	switch mutation.op {
	case mutationSet:
		s.set(fullKey, mutation.value, mutation.ttl)
	case mutationDelete:
		s.items.Delete(fullKey)
	}
	return nil
}

// Ping 进程内存储始终可用
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close 清空数据
func (s *MemoryStore) Close() error {
	s.items.Flush()
	return nil
}
