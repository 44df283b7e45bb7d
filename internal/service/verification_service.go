package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
)

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern       = regexp.MustCompile(`^[+]?[1-9]\d{0,15}$`)
	phoneStripReplacer = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\t", "")
)

const (
	verificationCodeMin    = 10000
	verificationCodeSpan   = 90000
	sessionIDBytes         = 32
	accessTokenBytes       = 32
	welcomeEmailTimeout    = 30 * time.Second
	accessTokenPrefixChars = 16
)

// VerificationMailer 验证流程使用的邮件能力
type VerificationMailer interface {
	SendVerificationCode(ctx context.Context, toEmail, code string, ttl time.Duration) error
	SendWelcome(ctx context.Context, toEmail string) error
}

// IssueCodeInput 发送验证码输入
type IssueCodeInput struct {
	Email             string
	Phone             string
	TargetContentUUID string
	ClientIP          string
	UserAgent         string
	Captcha           CaptchaVerifyPayload
}

// IssueCodeResult 发送验证码结果
type IssueCodeResult struct {
	SessionID         string
	TargetContentUUID string
	RateLimit         RateLimitResult
}

// ValidateCodeResult 校验验证码结果
type ValidateCodeResult struct {
	AccessToken       string
	TargetContentUUID string
	RateLimit         RateLimitResult
}

// AccessGrant 访问令牌解析结果
type AccessGrant struct {
	Token             string
	TargetContentUUID string
	SessionID         string
}

// TokenPrefix 用于访问日志的令牌前缀
func (g *AccessGrant) TokenPrefix() string {
	if g == nil {
		return ""
	}
	if len(g.Token) <= accessTokenPrefixChars {
		return g.Token
	}
	return g.Token[:accessTokenPrefixChars]
}

// VerificationService 邮箱验证码状态机
type VerificationService struct {
	cfg         config.VerificationConfig
	limiter     *RateLimiter
	store       *VerificationStore
	sessionRepo repository.UserSessionRepository
	mailer      VerificationMailer
	captcha     *CaptchaService
	now         func() time.Time
}

// NewVerificationService 创建验证服务
func NewVerificationService(
	cfg config.VerificationConfig,
	limiter *RateLimiter,
	store *VerificationStore,
	sessionRepo repository.UserSessionRepository,
	mailer VerificationMailer,
	captcha *CaptchaService,
) *VerificationService {
	return &VerificationService{
		cfg:         cfg,
		limiter:     limiter,
		store:       store,
		sessionRepo: sessionRepo,
		mailer:      mailer,
		captcha:     captcha,
		now:         time.Now,
	}
}

// NormalizePhone 去掉空格、横线与括号
func NormalizePhone(raw string) string {
	return phoneStripReplacer.Replace(strings.TrimSpace(raw))
}

// IsValidEmail 邮箱格式校验
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidPhone 手机号格式校验
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

// IssueCode 校验联系方式与限流后生成并发送验证码
func (s *VerificationService) IssueCode(ctx context.Context, input IssueCodeInput) (*IssueCodeResult, error) {
	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	if email == "" || phone == "" {
		return nil, ErrContactRequired
	}
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !IsValidPhone(phone) {
		return nil, ErrInvalidPhone
	}
	if s.captcha != nil {
		if err := s.captcha.Verify(constants.CaptchaSceneGenerateCode, input.Captcha); err != nil {
			return nil, err
		}
	}

	ipLimit := s.limiter.CheckRateLimit(ctx, IPKey(input.ClientIP), s.cfg.IssueIPLimit.MaxRequests, s.cfg.IssueIPLimit.Window())
	if !ipLimit.Allowed {
		return nil, &RateLimitError{Scope: "ip", Limit: ipLimit.Limit, Remaining: 0, ResetAt: ipLimit.ResetAt}
	}
	emailLimit := s.limiter.CheckRateLimit(ctx, EmailKey(email), s.cfg.IssueEmailLimit.MaxRequests, s.cfg.IssueEmailLimit.Window())
	if !emailLimit.Allowed {
		return nil, &RateLimitError{Scope: "email", Limit: emailLimit.Limit, Remaining: 0, ResetAt: emailLimit.ResetAt}
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}
	sessionID, err := randomHex(sessionIDBytes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ttl := s.store.CodeTTL()
	targetUUID := strings.TrimSpace(input.TargetContentUUID)
	record := VerificationRecord{
		Code:              code,
		Email:             email,
		Phone:             phone,
		ExpiresAt:         now.Add(ttl).UnixMilli(),
		TargetContentUUID: targetUUID,
	}
	if err := s.store.SaveCode(ctx, sessionID, record); err != nil {
		return nil, fmt.Errorf("%w: store code: %v", ErrSendCodeFailed, err)
	}

	session := &models.UserSession{
		SessionID:              sessionID,
		Email:                  strings.ToLower(email),
		PhoneNumber:            phone,
		IPAddress:              input.ClientIP,
		UserAgent:              truncateRunes(input.UserAgent, 512),
		TargetContentUUID:      targetUUID,
		VerificationCodeSentAt: now,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		logger.Errorw("user_session_create_failed", "session_id", sessionID, "error", err)
	}

	if err := s.mailer.SendVerificationCode(ctx, email, code, ttl); err != nil {
		if delErr := s.store.DeleteCode(ctx, sessionID); delErr != nil {
			logger.Errorw("verification_code_rollback_failed", "session_id", sessionID, "error", delErr)
		}
		logger.Warnw("verification_code_send_failed", "email", logger.MaskEmail(email), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}

	logger.Infow("verification_code_sent", "session_id", sessionID, "email", logger.MaskEmail(email), "client_ip", input.ClientIP)
	return &IssueCodeResult{
		SessionID:         sessionID,
		TargetContentUUID: targetUUID,
		RateLimit:         ipLimit,
	}, nil
}

// ValidateCode 校验验证码，成功后签发访问令牌
func (s *VerificationService) ValidateCode(ctx context.Context, code, sessionID, clientIP string) (*ValidateCodeResult, error) {
	code = strings.TrimSpace(code)
	sessionID = strings.TrimSpace(sessionID)
	if code == "" || sessionID == "" {
		return nil, ErrCodeRequired
	}

	ipLimit := s.limiter.CheckRateLimit(ctx, ValidateIPKey(clientIP), s.cfg.ValidateIPLimit.MaxRequests, s.cfg.ValidateIPLimit.Window())
	if !ipLimit.Allowed {
		return nil, &RateLimitError{Scope: "validate_ip", Limit: ipLimit.Limit, Remaining: 0, ResetAt: ipLimit.ResetAt}
	}

	lock := time.Duration(s.cfg.LockSeconds) * time.Second
	attempts := s.limiter.CheckSessionAttempts(ctx, sessionID, s.cfg.MaxAttempts, lock)
	if !attempts.Allowed {
		lockedUntil := s.now().Add(lock)
		if attempts.LockedUntil != nil {
			lockedUntil = *attempts.LockedUntil
		}
		return nil, &AttemptLimitError{LockedUntil: lockedUntil}
	}

	now := s.now()
	outcome, record, err := s.store.ConsumeIfMatch(ctx, sessionID, code, now)
	if err != nil {
		return nil, fmt.Errorf("consume verification code: %w", err)
	}
	switch outcome {
	case ConsumeNotFound:
		return nil, ErrVerificationNotFound
	case ConsumeExpired:
		s.limiter.ResetSessionAttempts(ctx, sessionID)
		return nil, ErrVerificationExpired
	case ConsumeMismatch:
		return nil, &InvalidCodeError{AttemptsRemaining: attempts.AttemptsRemaining}
	}

	accessToken, err := randomHex(accessTokenBytes)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAccessToken(ctx, accessToken, AccessTokenRecord{
		CreatedAt:         now.UnixMilli(),
		TargetContentUUID: record.TargetContentUUID,
		SessionID:         sessionID,
	}); err != nil {
		return nil, fmt.Errorf("store access token: %w", err)
	}

	if err := s.sessionRepo.MarkCodeVerified(sessionID, now); err != nil {
		logger.Errorw("user_session_mark_verified_failed", "session_id", sessionID, "error", err)
	}
	s.limiter.ResetSessionAttempts(ctx, sessionID)

	if s.cfg.WelcomeEmailEnabled {
		s.sendWelcomeAsync(ctx, record.Email)
	}

	logger.Infow("verification_code_validated", "session_id", sessionID, "client_ip", clientIP)
	return &ValidateCodeResult{
		AccessToken:       accessToken,
		TargetContentUUID: record.TargetContentUUID,
		RateLimit:         ipLimit,
	}, nil
}

// ValidateAccessToken 解析访问令牌
func (s *VerificationService) ValidateAccessToken(ctx context.Context, token string) (*AccessGrant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAccessTokenRequired
	}
	record, err := s.store.GetAccessToken(ctx, token)
	if err != nil {
		logger.Warnw("access_token_lookup_failed", "error", err)
		return nil, ErrAccessTokenInvalid
	}
	if record == nil {
		return nil, ErrAccessTokenInvalid
	}
	return &AccessGrant{
		Token:             token,
		TargetContentUUID: record.TargetContentUUID,
		SessionID:         record.SessionID,
	}, nil
}

func (s *VerificationService) sendWelcomeAsync(ctx context.Context, email string) {
	detached := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(detached, welcomeEmailTimeout)
		defer cancel()
		if err := s.mailer.SendWelcome(sendCtx, email); err != nil {
			logger.Warnw("welcome_email_send_failed", "email", logger.MaskEmail(email), "error", err)
		}
	}()
}

// generateVerificationCode 生成 [10000, 99999] 范围的五位数验证码
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+verificationCodeMin), nil
}

func randomHex(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
