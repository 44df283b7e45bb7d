package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gatemail/internal/cache"
	"github.com/gatemail/internal/logger"
)

const (
	rateLimitIPKeyPrefix         = "rate_limit:ip:"
	rateLimitEmailKeyPrefix      = "rate_limit:email:"
	rateLimitValidateIPKeyPrefix = "rate_limit:ip:validate:"
	sessionAttemptsKeyPrefix     = "attempts:session:"
)

// RateLimitResult 固定窗口限流结果
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// AttemptResult 会话尝试次数检查结果
type AttemptResult struct {
	Allowed           bool
	AttemptsRemaining int
	LockedUntil       *time.Time
}

type rateLimitRecord struct {
	Count     int   `json:"count"`
	ResetTime int64 `json:"resetTime"` // unix 毫秒
}

type attemptRecord struct {
	Count       int    `json:"count"`
	LockedUntil *int64 `json:"lockedUntil,omitempty"` // unix 毫秒
}

// RateLimiter 基于过期存储的限流器
// 存储不可用时放行
type RateLimiter struct {
	store cache.Store
	now   func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(store cache.Store) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

// IPKey 发码 IP 维度 key
func IPKey(ip string) string {
	return rateLimitIPKeyPrefix + strings.TrimSpace(ip)
}

// EmailKey 发码邮箱维度 key
func EmailKey(email string) string {
	return rateLimitEmailKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// ValidateIPKey 校验验证码 IP 维度 key
func ValidateIPKey(ip string) string {
	return rateLimitValidateIPKeyPrefix + strings.TrimSpace(ip)
}

func sessionAttemptsKey(sessionID string) string {
	return sessionAttemptsKeyPrefix + sessionID
}

// CheckRateLimit 固定窗口计数；超限时不再递增
func (l *RateLimiter) CheckRateLimit(ctx context.Context, key string, max int, window time.Duration) RateLimitResult {
	now := l.now()
	var result RateLimitResult
	err := l.store.Mutate(ctx, key, func(current []byte, exists bool) (cache.Mutation, error) {
		nowMS := now.UnixMilli()
		var record rateLimitRecord
		if exists {
			if err := json.Unmarshal(current, &record); err != nil {
				exists = false
			}
		}
		if !exists || nowMS > record.ResetTime {
			record = rateLimitRecord{Count: 1, ResetTime: now.Add(window).UnixMilli()}
			result = RateLimitResult{
				Allowed:   true,
				Limit:     max,
				Remaining: max - 1,
				ResetAt:   time.UnixMilli(record.ResetTime),
			}
			payload, err := json.Marshal(record)
			if err != nil {
				return cache.Mutation{}, err
			}
			return cache.Put(payload, window), nil
		}

		if record.Count >= max {
			result = RateLimitResult{
				Allowed:   false,
				Limit:     max,
				Remaining: 0,
				ResetAt:   time.UnixMilli(record.ResetTime),
			}
			return cache.Keep(), nil
		}

		record.Count++
		result = RateLimitResult{
			Allowed:   true,
			Limit:     max,
			Remaining: max - record.Count,
			ResetAt:   time.UnixMilli(record.ResetTime),
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return cache.Mutation{}, err
		}
		return cache.Put(payload, ceilTTL(record.ResetTime-nowMS)), nil
	})
	if err != nil {
		logger.Warnw("rate_limit_store_unavailable", "key", key, "error", err)
		return RateLimitResult{
			Allowed:   true,
			Limit:     max,
			Remaining: max - 1,
			ResetAt:   now.Add(window),
		}
	}
	return result
}

// CheckSessionAttempts 会话验证码尝试次数检查，耗尽后锁定
func (l *RateLimiter) CheckSessionAttempts(ctx context.Context, sessionID string, max int, lock time.Duration) AttemptResult {
	now := l.now()
	key := sessionAttemptsKey(sessionID)
	var result AttemptResult
	err := l.store.Mutate(ctx, key, func(current []byte, exists bool) (cache.Mutation, error) {
		nowMS := now.UnixMilli()
		var record attemptRecord
		if exists {
			if err := json.Unmarshal(current, &record); err != nil {
				exists = false
			}
		}

		if exists && record.LockedUntil != nil {
			if nowMS < *record.LockedUntil {
				until := time.UnixMilli(*record.LockedUntil)
				result = AttemptResult{Allowed: false, AttemptsRemaining: 0, LockedUntil: &until}
				return cache.Keep(), nil
			}
			exists = false
		}

		if !exists {
			record = attemptRecord{Count: 1}
			result = AttemptResult{Allowed: true, AttemptsRemaining: max - 1}
			return putAttemptRecord(record, lock)
		}

		if record.Count >= max {
			lockedUntil := now.Add(lock).UnixMilli()
			record.LockedUntil = &lockedUntil
			until := time.UnixMilli(lockedUntil)
			result = AttemptResult{Allowed: false, AttemptsRemaining: 0, LockedUntil: &until}
			return putAttemptRecord(record, lock)
		}

		record.Count++
		result = AttemptResult{Allowed: true, AttemptsRemaining: max - record.Count}
		return putAttemptRecord(record, lock)
	})
	if err != nil {
		logger.Warnw("session_attempts_store_unavailable", "session_id", sessionID, "error", err)
		return AttemptResult{Allowed: true, AttemptsRemaining: max - 1}
	}
	return result
}

// ResetSessionAttempts 清除会话尝试记录
func (l *RateLimiter) ResetSessionAttempts(ctx context.Context, sessionID string) {
	if err := l.store.Del(ctx, sessionAttemptsKey(sessionID)); err != nil {
		logger.Warnw("session_attempts_reset_failed", "session_id", sessionID, "error", err)
	}
}

func putAttemptRecord(record attemptRecord, ttl time.Duration) (cache.Mutation, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return cache.Mutation{}, err
	}
	return cache.Put(payload, ttl), nil
}

// ceilTTL 毫秒差向上取整到秒，至少 1 秒
func ceilTTL(diffMS int64) time.Duration {
	if diffMS <= 0 {
		return time.Second
	}
	seconds := (diffMS + 999) / 1000
	return time.Duration(seconds) * time.Second
}
