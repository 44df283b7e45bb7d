package shared

import (
	"errors"
	"strings"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// ErrorRule 业务错误到接口错误的映射，命中规则的错误属于预期内，不记录日志
type ErrorRule struct {
	Target error
	Code   int
	Key    string
}

// RespondMapped 按顺序匹配 rules，未命中时使用 fallback 并记录原始错误
func RespondMapped(c *gin.Context, err error, rules []ErrorRule, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// CaptchaErrorRules 图形验证码校验失败的通用映射
var CaptchaErrorRules = []ErrorRule{
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeInternal, Key: "error.captcha_config_invalid"},
}

// WithRules 拼接多组规则，前面的优先
func WithRules(groups ...[]ErrorRule) []ErrorRule {
	var merged []ErrorRule
	for _, group := range groups {
		merged = append(merged, group...)
	}
	return merged
}

// CaptchaPayloadRequest 请求体中的图形验证码字段
type CaptchaPayloadRequest struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

func (r CaptchaPayloadRequest) ToServicePayload() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:   strings.TrimSpace(r.CaptchaID),
		CaptchaCode: strings.TrimSpace(r.CaptchaCode),
	}
}
