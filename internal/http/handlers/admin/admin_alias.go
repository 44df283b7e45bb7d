package admin

import (
	"errors"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// AliasRequest 发件别名请求
type AliasRequest struct {
	RealEmail  string `json:"real_email" binding:"required"`
	AliasEmail string `json:"alias_email" binding:"required"`
	AliasName  string `json:"alias_name"`
}

// AliasVerifyRequest 别名验证请求
type AliasVerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// GetAliases 别名列表
func (h *Handler) GetAliases(c *gin.Context) {
	aliases, err := h.AliasService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, aliases)
}

// CreateAlias 创建别名
func (h *Handler) CreateAlias(c *gin.Context) {
	var req AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	alias, err := h.AliasService.Create(service.AliasInput{
		RealEmail:  req.RealEmail,
		AliasEmail: req.AliasEmail,
		AliasName:  req.AliasName,
	})
	if err != nil {
		respondAliasError(c, err)
		return
	}
	response.Success(c, alias)
}

// DeleteAlias 删除别名
func (h *Handler) DeleteAlias(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.AliasService.Delete(id); err != nil {
		respondAliasError(c, err)
		return
	}
	response.Success(c, nil)
}

// SendAliasVerification 发送别名验证邮件
func (h *Handler) SendAliasVerification(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.AliasService.SendVerification(c.Request.Context(), id); err != nil {
		respondAliasError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

// VerifyAlias 校验别名验证令牌
func (h *Handler) VerifyAlias(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AliasVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	alias, err := h.AliasService.Verify(id, req.Token)
	if err != nil {
		respondAliasError(c, err)
		return
	}
	response.Success(c, alias)
}

func respondAliasError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAliasNotFound):
		respondError(c, response.CodeNotFound, "error.alias_not_found", nil)
	case errors.Is(err, service.ErrAliasInvalid):
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrAliasTokenInvalid):
		respondError(c, response.CodeBadRequest, "error.alias_token_invalid", nil)
	case errors.Is(err, service.ErrEmailServiceDisabled),
		errors.Is(err, service.ErrEmailServiceNotConfigured):
		respondError(c, response.CodeBadRequest, "error.email_service_not_configured", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}
