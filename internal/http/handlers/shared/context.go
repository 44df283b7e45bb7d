package shared

import (
	"strconv"
	"strings"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// 由 JWT 中间件写入的上下文键
const (
	AdminIDKey   = "admin_id"
	RequestIDKey = "request_id"
)

// AdminID 当前管理员 ID，缺失时写入 401
func AdminID(c *gin.Context) (uint, bool) {
	id, ok := c.Get(AdminIDKey)
	adminID, typed := id.(uint)
	if !ok || !typed || adminID == 0 {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	return adminID, true
}

// ParseIDParam 路径中的正整数 ID，非法时写入 400
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 0)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}

func RequestMetaFromContext(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
