package public

import (
	"strings"

	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

func requestMeta(c *gin.Context) service.RequestMeta {
	return handlershared.RequestMetaFromContext(c)
}

// bearerToken 读取 Authorization: Bearer <token>
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
