package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/gatemail/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.AdminID(c)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	return handlershared.ParseIDParam(c, "id")
}

// currentAdminID 仅用于日志，缺失时为 0
func currentAdminID(c *gin.Context) uint {
	return c.GetUint(handlershared.AdminIDKey)
}

func currentRequestID(c *gin.Context) string {
	return handlershared.RequestID(c)
}

// queryInt 缺失或非法时返回 fallback
func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return fallback
	}
	return value
}

// parseTimeNullable RFC3339，空串返回 nil
func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
