package public

import (
	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

type errorRule = handlershared.ErrorRule

func respondWithMappedError(c *gin.Context, err error, rules []errorRule, fallbackCode int, fallbackKey string) {
	handlershared.RespondMapped(c, err, rules, fallbackCode, fallbackKey)
}

var generateCodeErrorRules = handlershared.WithRules([]errorRule{
	{Target: service.ErrContactRequired, Code: response.CodeBadRequest, Key: "error.contact_required"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrInvalidPhone, Code: response.CodeBadRequest, Key: "error.phone_invalid"},
	{Target: service.ErrEmailSendFailed, Code: response.CodeInternal, Key: "error.send_code_failed"},
}, handlershared.CaptchaErrorRules)

var validateCodeErrorRules = []errorRule{
	{Target: service.ErrCodeRequired, Code: response.CodeBadRequest, Key: "error.code_required"},
	{Target: service.ErrVerificationNotFound, Code: response.CodeBadRequest, Key: "error.verification_not_found"},
	{Target: service.ErrVerificationExpired, Code: response.CodeBadRequest, Key: "error.verification_expired"},
}

var accessTokenErrorRules = []errorRule{
	{Target: service.ErrAccessTokenRequired, Code: response.CodeUnauthorized, Key: "error.access_token_required"},
	{Target: service.ErrAccessTokenInvalid, Code: response.CodeUnauthorized, Key: "error.access_token_invalid"},
}

var contentErrorRules = handlershared.WithRules([]errorRule{
	{Target: service.ErrContentNotFound, Code: response.CodeNotFound, Key: "error.content_not_found"},
}, accessTokenErrorRules)
