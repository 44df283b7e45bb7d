package public

import (
	"errors"
	"strconv"
	"time"

	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// GenerateCodeRequest 发送验证码请求
type GenerateCodeRequest struct {
	Email             string                              `json:"email"`
	Phone             string                              `json:"phone"`
	TargetContentUUID string                              `json:"targetContentUuid"`
	CaptchaPayload    handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// ValidateCodeRequest 校验验证码请求
type ValidateCodeRequest struct {
	Code      string `json:"code"`
	SessionID string `json:"sessionId"`
}

// ValidateTokenRequest 校验访问令牌请求
type ValidateTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

// GenerateCode 发送邮箱验证码
func (h *Handler) GenerateCode(c *gin.Context) {
	var req GenerateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.VerificationService.IssueCode(c.Request.Context(), service.IssueCodeInput{
		Email:             req.Email,
		Phone:             req.Phone,
		TargetContentUUID: req.TargetContentUUID,
		ClientIP:          c.ClientIP(),
		UserAgent:         c.GetHeader("User-Agent"),
		Captcha:           req.CaptchaPayload.ToServicePayload(),
	})
	if err != nil {
		if respondRateLimited(c, err) {
			return
		}
		respondWithMappedError(c, err, generateCodeErrorRules, response.CodeInternal, "error.send_code_failed")
		return
	}

	setRateLimitHeaders(c, result.RateLimit)
	var target interface{}
	if result.TargetContentUUID != "" {
		target = result.TargetContentUUID
	}
	response.Success(c, gin.H{
		"sessionId":         result.SessionID,
		"targetContentUuid": target,
	})
}

// ValidateCode 校验验证码并签发访问令牌
func (h *Handler) ValidateCode(c *gin.Context) {
	var req ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.VerificationService.ValidateCode(c.Request.Context(), req.Code, req.SessionID, c.ClientIP())
	if err != nil {
		if respondRateLimited(c, err) {
			return
		}
		var invalidCode *service.InvalidCodeError
		if errors.As(err, &invalidCode) {
			respondErrorWithData(c, response.CodeBadRequest, "error.verification_code_invalid", gin.H{
				"attemptsRemaining": invalidCode.AttemptsRemaining,
			}, nil)
			return
		}
		respondWithMappedError(c, err, validateCodeErrorRules, response.CodeInternal, "error.internal")
		return
	}

	setRateLimitHeaders(c, result.RateLimit)
	response.Success(c, gin.H{
		"accessToken":       result.AccessToken,
		"targetContentUuid": result.TargetContentUUID,
	})
}

// ValidateToken 校验访问令牌
func (h *Handler) ValidateToken(c *gin.Context) {
	var req ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	grant, err := h.VerificationService.ValidateAccessToken(c.Request.Context(), req.AccessToken)
	if err != nil {
		respondWithMappedError(c, err, accessTokenErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"valid":             true,
		"targetContentUuid": grant.TargetContentUUID,
	})
}

// respondRateLimited 处理限流与会话锁定，已响应时返回 true
func respondRateLimited(c *gin.Context, err error) bool {
	now := time.Now()
	var limitErr *service.RateLimitError
	if errors.As(err, &limitErr) {
		retryAfter := limitErr.RetryAfter(now)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limitErr.Limit))
		c.Header("X-RateLimit-Remaining", "0")
		c.Header("X-RateLimit-Reset", strconv.FormatInt(limitErr.ResetAt.UnixMilli(), 10))
		respondErrorWithData(c, response.CodeTooManyRequests, "error.too_many_requests", gin.H{
			"retryAfter": retryAfter,
			"scope":      limitErr.Scope,
		}, nil)
		return true
	}
	var lockErr *service.AttemptLimitError
	if errors.As(err, &lockErr) {
		retryAfter := lockErr.RetryAfter(now)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		respondErrorWithData(c, response.CodeTooManyRequests, "error.session_locked", gin.H{
			"retryAfter": retryAfter,
		}, nil)
		return true
	}
	return false
}

func setRateLimitHeaders(c *gin.Context, result service.RateLimitResult) {
	if result.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.UnixMilli(), 10))
}
