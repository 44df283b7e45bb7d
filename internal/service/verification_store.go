package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gatemail/internal/cache"
)

const (
	verificationKeyPrefix = "verification:"
	accessTokenKeyPrefix  = "access_token:"
)

// VerificationRecord 待校验的一次性验证码
type VerificationRecord struct {
	Code              string `json:"code"`
	Email             string `json:"email"`
	Phone             string `json:"phone,omitempty"`
	ExpiresAt         int64  `json:"expiresAt"` // unix 毫秒
	TargetContentUUID string `json:"targetContentUuid,omitempty"`
}

// AccessTokenRecord 验证通过后签发的访问令牌
type AccessTokenRecord struct {
	CreatedAt         int64  `json:"createdAt"`
	TargetContentUUID string `json:"targetContentUuid,omitempty"`
	SessionID         string `json:"sessionId"`
}

// ConsumeOutcome 验证码消费结果
type ConsumeOutcome int

const (
	ConsumeNotFound ConsumeOutcome = iota
	ConsumeExpired
	ConsumeMismatch
	ConsumeMatched
)

// VerificationStore 验证码与访问令牌存储
type VerificationStore struct {
	store    cache.Store
	codeTTL  time.Duration
	tokenTTL time.Duration
}

// NewVerificationStore 创建验证码存储
func NewVerificationStore(store cache.Store, codeTTL, tokenTTL time.Duration) *VerificationStore {
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &VerificationStore{store: store, codeTTL: codeTTL, tokenTTL: tokenTTL}
}

// CodeTTL 验证码有效期
func (s *VerificationStore) CodeTTL() time.Duration {
	return s.codeTTL
}

// SaveCode 写入验证码记录
func (s *VerificationStore) SaveCode(ctx context.Context, sessionID string, record VerificationRecord) error {
	return s.store.SetJSON(ctx, verificationKeyPrefix+sessionID, record, s.codeTTL)
}

// DeleteCode 删除验证码记录
func (s *VerificationStore) DeleteCode(ctx context.Context, sessionID string) error {
	return s.store.Del(ctx, verificationKeyPrefix+sessionID)
}

// ConsumeIfMatch 原子地比对并消费验证码
// 匹配或过期时删除记录，不匹配时保留
func (s *VerificationStore) ConsumeIfMatch(ctx context.Context, sessionID, code string, now time.Time) (ConsumeOutcome, *VerificationRecord, error) {
	outcome := ConsumeNotFound
	var matched *VerificationRecord
	err := s.store.Mutate(ctx, verificationKeyPrefix+sessionID, func(current []byte, exists bool) (cache.Mutation, error) {
		matched = nil
		if !exists {
			outcome = ConsumeNotFound
			return cache.Keep(), nil
		}
		var record VerificationRecord
		if err := json.Unmarshal(current, &record); err != nil {
			outcome = ConsumeNotFound
			return cache.Remove(), nil
		}
		if now.UnixMilli() > record.ExpiresAt {
			outcome = ConsumeExpired
			return cache.Remove(), nil
		}
		if record.Code != code {
			outcome = ConsumeMismatch
			return cache.Keep(), nil
		}
		outcome = ConsumeMatched
		matched = &record
		return cache.Remove(), nil
	})
	if err != nil {
		return ConsumeNotFound, nil, err
	}
	return outcome, matched, nil
}

// SaveAccessToken 写入访问令牌
func (s *VerificationStore) SaveAccessToken(ctx context.Context, token string, record AccessTokenRecord) error {
	return s.store.SetJSON(ctx, accessTokenKeyPrefix+token, record, s.tokenTTL)
}

// GetAccessToken 读取访问令牌，不存在返回 nil
func (s *VerificationStore) GetAccessToken(ctx context.Context, token string) (*AccessTokenRecord, error) {
	var record AccessTokenRecord
	found, err := s.store.GetJSON(ctx, accessTokenKeyPrefix+token, &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}
