package public

import (
	"errors"
	"strings"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 生成图片验证码；scene 未开启时只返回 enabled=false
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	scene := strings.TrimSpace(c.DefaultQuery("scene", constants.CaptchaSceneGenerateCode))
	if !h.CaptchaService.IsSceneEnabled(scene) {
		response.Success(c, gin.H{"enabled": false, "scene": scene})
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if errors.Is(err, service.ErrCaptchaConfigInvalid) {
		respondError(c, response.CodeInternal, "error.captcha_unavailable", err)
		return
	}
	if err != nil {
		respondError(c, response.CodeInternal, "error.captcha_generate_failed", err)
		return
	}
	response.Success(c, gin.H{
		"enabled":      true,
		"scene":        scene,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
