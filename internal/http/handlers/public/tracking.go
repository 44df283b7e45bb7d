package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"
	"github.com/gatemail/internal/tracking"

	"github.com/gin-gonic/gin"
)

// TrackOpen 邮件打开像素，无论记录成功与否都返回图片
func (h *Handler) TrackOpen(c *gin.Context) {
	trackingID := strings.TrimSpace(c.Query("id"))
	if trackingID != "" {
		if err := h.TrackingService.RecordOpen(c.Request.Context(), trackingID, requestMeta(c)); err != nil {
			logTrackingError(c, "open", trackingID, err)
		}
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/png", tracking.PixelPNG)
}

// TrackClick 记录点击并跳转到原始链接
func (h *Handler) TrackClick(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		respondError(c, response.CodeBadRequest, "error.url_required", nil)
		return
	}
	if trackingID := strings.TrimSpace(c.Query("id")); trackingID != "" {
		if err := h.TrackingService.RecordClick(c.Request.Context(), trackingID, target, requestMeta(c)); err != nil {
			logTrackingError(c, "click", trackingID, err)
		}
	}
	c.Redirect(http.StatusFound, target)
}

func logTrackingError(c *gin.Context, event, trackingID string, err error) {
	if errors.Is(err, service.ErrTrackingNotFound) {
		requestLog(c).Debugw("tracking_id_unknown", "event", event, "tracking_id", trackingID)
		return
	}
	requestLog(c).Warnw("tracking_record_failed", "event", event, "tracking_id", trackingID, "error", err)
}
