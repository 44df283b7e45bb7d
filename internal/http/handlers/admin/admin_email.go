package admin

import (
	"errors"
	"strings"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// TestEmailRequest 测试邮件请求
type TestEmailRequest struct {
	ToEmail string `json:"to_email" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendTestEmail 使用系统默认发信配置发送测试邮件
func (h *Handler) SendTestEmail(c *gin.Context) {
	var req TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	toEmail := strings.TrimSpace(req.ToEmail)
	if toEmail == "" {
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		return
	}

	result, err := h.EmailService.SendCustomEmail(c.Request.Context(), toEmail, req.Subject, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		case errors.Is(err, service.ErrEmailRecipientNotFound):
			respondError(c, response.CodeBadRequest, "error.email_recipient_not_found", nil)
		case errors.Is(err, service.ErrEmailServiceDisabled),
			errors.Is(err, service.ErrEmailServiceNotConfigured):
			respondError(c, response.CodeBadRequest, "error.email_service_not_configured", nil)
		default:
			respondErrorWithData(c, response.CodeInternal, "error.email_send_failed", gin.H{"details": err.Error()}, err)
		}
		return
	}

	response.Success(c, gin.H{
		"sent":       true,
		"message_id": result.MessageID,
	})
}

// GetSMTPPresets 常用 SMTP 服务商预设，custom 项取当前配置
func (h *Handler) GetSMTPPresets(c *gin.Context) {
	custom := mailer.SMTPPreset{}
	if h.Config != nil {
		custom.Host = h.Config.Email.Host
		custom.Port = h.Config.Email.Port
		custom.Secure = h.Config.Email.UseSSL
	}
	response.Success(c, mailer.SMTPPresets(custom))
}
