package shared

import (
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/i18n"
	"github.com/gatemail/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 带 request_id 的日志
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := RequestID(c); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 按 i18n key 返回错误
func RespondError(c *gin.Context, code int, key string, err error) {
	fail(c, response.NewAppError(code, i18n.T(i18n.ResolveLocale(c), key), err), nil)
}

// RespondErrorWithMsg 返回已格式化好的错误消息
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	fail(c, response.NewAppError(code, msg, err), nil)
}

// RespondErrorWithData 按 i18n key 返回错误并附带 data
func RespondErrorWithData(c *gin.Context, code int, key string, data interface{}, err error) {
	fail(c, response.NewAppError(code, i18n.T(i18n.ResolveLocale(c), key), err), data)
}

// fail 有原始错误时记录日志：5xx 记 error，其余记 warn
func fail(c *gin.Context, appErr *response.AppError, data interface{}) {
	if appErr.Err != nil {
		log := RequestLog(c)
		if appErr.ServerSide() {
			log.Errorw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", appErr.Err)
		} else {
			log.Warnw("handler_rejected", "code", appErr.Code, "message", appErr.Message, "error", appErr.Err)
		}
	}
	response.Fail(c, appErr, data)
}
