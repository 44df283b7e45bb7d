package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/models"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

var errDatabaseUnavailable = errors.New("database not initialized")

// GetConfig 前端所需的公开配置
func (h *Handler) GetConfig(c *gin.Context) {
	data := gin.H{
		"languages": []string{"en-US", "zh-CN"},
	}
	if h.CaptchaService != nil {
		data["captcha"] = h.CaptchaService.GetPublicSetting()
	}
	response.Success(c, data)
}

// Health 健康检查：数据库与过期存储
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{"database": "ok", "store": "ok"}
	healthy := true
	if err := pingDatabase(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if h.Store != nil {
		if err := h.Store.Ping(ctx); err != nil {
			checks["store"] = err.Error()
			healthy = false
		}
	}

	if !healthy {
		requestLog(c).Warnw("health_check_failed", "checks", checks)
		c.JSON(http.StatusServiceUnavailable, response.Response{
			StatusCode: http.StatusServiceUnavailable,
			Msg:        "unhealthy",
			Data:       checks,
		})
		return
	}
	response.Success(c, checks)
}

func pingDatabase(ctx context.Context) error {
	if models.DB == nil {
		return errDatabaseUnavailable
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
