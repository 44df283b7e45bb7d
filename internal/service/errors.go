package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPhone       = errors.New("invalid phone")
	ErrContactRequired    = errors.New("email or phone required")

	ErrRateLimited           = errors.New("rate limited")
	ErrSessionLocked         = errors.New("session locked")
	ErrCodeRequired          = errors.New("code and session id required")
	ErrVerificationNotFound  = errors.New("verification not found")
	ErrVerificationExpired   = errors.New("verification expired")
	ErrInvalidCode           = errors.New("invalid verification code")
	ErrAccessTokenRequired   = errors.New("access token required")
	ErrAccessTokenInvalid    = errors.New("access token invalid")
	ErrWrongContent          = errors.New("access token bound to other content")
	ErrContentNotFound       = errors.New("content not found")
	ErrContentInvalid        = errors.New("content invalid")
	ErrSendCodeFailed        = errors.New("send verification code failed")
	ErrRateLimitStoreFailure = errors.New("rate limit store unavailable")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")

	ErrCampaignNotFound          = errors.New("campaign not found")
	ErrCampaignInvalid           = errors.New("campaign invalid")
	ErrCampaignStatusInvalid     = errors.New("campaign status invalid")
	ErrCampaignSendFailed        = errors.New("campaign send failed")
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailConnectionFailed     = errors.New("email service connection failed")
	ErrEmailSendFailed           = errors.New("email send failed")
	ErrEmailRecipientNotFound    = errors.New("email recipient not found")
	ErrUnsupportedProvider       = errors.New("unsupported email provider")
	ErrCredentialNotFound        = errors.New("email credential not found")
	ErrCredentialInvalid         = errors.New("email credential invalid")
	ErrAliasNotFound             = errors.New("sender alias not found")
	ErrAliasInvalid              = errors.New("sender alias invalid")
	ErrAliasTokenInvalid         = errors.New("sender alias token invalid")
	ErrTemplateNotFound          = errors.New("email template not found")
	ErrTemplateInvalid           = errors.New("email template invalid")
	ErrTrackingNotFound          = errors.New("tracking id not found")
	ErrQueueUnavailable          = errors.New("queue unavailable")
	ErrAnalyticsRangeInvalid     = errors.New("analytics range invalid")
)

// RateLimitError 频率限制错误，携带响应头所需信息
type RateLimitError struct {
	Scope     string
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s limit %d reset at %s", ErrRateLimited.Error(), e.Scope, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter 距离窗口重置的秒数，至少为 1
func (e *RateLimitError) RetryAfter(now time.Time) int {
	return retryAfterSeconds(e.ResetAt, now)
}

// AttemptLimitError 会话尝试次数耗尽
type AttemptLimitError struct {
	LockedUntil time.Time
}

func (e *AttemptLimitError) Error() string {
	return fmt.Sprintf("%s: until %s", ErrSessionLocked.Error(), e.LockedUntil.UTC().Format(time.RFC3339))
}

func (e *AttemptLimitError) Unwrap() error {
	return ErrSessionLocked
}

// RetryAfter 距离解锁的秒数，至少为 1
func (e *AttemptLimitError) RetryAfter(now time.Time) int {
	return retryAfterSeconds(e.LockedUntil, now)
}

// InvalidCodeError 验证码不匹配
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidCode.Error(), e.AttemptsRemaining)
}

func (e *InvalidCodeError) Unwrap() error {
	return ErrInvalidCode
}

// WrongContentError 令牌与请求内容不一致
type WrongContentError struct {
	TargetContentUUID string
}

func (e *WrongContentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrWrongContent.Error(), e.TargetContentUUID)
}

func (e *WrongContentError) Unwrap() error {
	return ErrWrongContent
}

func retryAfterSeconds(until, now time.Time) int {
	diff := until.Sub(now)
	if diff <= 0 {
		return 1
	}
	seconds := int((diff + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
