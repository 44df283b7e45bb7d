package admin

import (
	"errors"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// CredentialRequest 凭据请求，secret 为 SMTP 密码或 API Key
type CredentialRequest struct {
	AliasID        *uint  `json:"alias_id"`
	CredentialName string `json:"credential_name"`
	ProviderType   string `json:"provider_type"`
	SMTPHost       string `json:"smtp_host"`
	SMTPPort       int    `json:"smtp_port"`
	SMTPUsername   string `json:"smtp_username"`
	SMTPUseTLS     *bool  `json:"smtp_use_tls"`
	APIEndpoint    string `json:"api_endpoint"`
	Secret         string `json:"secret"`
	IsActive       *bool  `json:"is_active"`
	IsDefault      *bool  `json:"is_default"`
}

func (r CredentialRequest) toInput() service.CredentialInput {
	return service.CredentialInput{
		AliasID:        r.AliasID,
		CredentialName: r.CredentialName,
		ProviderType:   r.ProviderType,
		SMTPHost:       r.SMTPHost,
		SMTPPort:       r.SMTPPort,
		SMTPUsername:   r.SMTPUsername,
		SMTPUseTLS:     r.SMTPUseTLS,
		APIEndpoint:    r.APIEndpoint,
		Secret:         r.Secret,
		IsActive:       r.IsActive,
		IsDefault:      r.IsDefault,
	}
}

// GetCredentials 凭据列表
func (h *Handler) GetCredentials(c *gin.Context) {
	credentials, err := h.CredentialService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, credentials)
}

// CreateCredential 创建凭据
func (h *Handler) CreateCredential(c *gin.Context) {
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	credential, err := h.CredentialService.Create(req.toInput())
	if err != nil {
		respondCredentialError(c, err)
		return
	}
	requestLog(c).Infow("admin_credential_created", "credential_id", credential.ID, "provider", credential.ProviderType, "admin_id", currentAdminID(c))
	response.Success(c, credential)
}

// UpdateCredential 更新凭据
func (h *Handler) UpdateCredential(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	credential, err := h.CredentialService.Update(id, req.toInput())
	if err != nil {
		respondCredentialError(c, err)
		return
	}
	response.Success(c, credential)
}

// DeleteCredential 删除凭据
func (h *Handler) DeleteCredential(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.CredentialService.Delete(id); err != nil {
		respondCredentialError(c, err)
		return
	}
	requestLog(c).Infow("admin_credential_deleted", "credential_id", id, "admin_id", currentAdminID(c))
	response.Success(c, nil)
}

// TestCredential 测试凭据连通性
func (h *Handler) TestCredential(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.CredentialService.TestConnection(c.Request.Context(), id); err != nil {
		respondCredentialError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

func respondCredentialError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCredentialNotFound):
		respondError(c, response.CodeNotFound, "error.credential_not_found", nil)
	case errors.Is(err, service.ErrAliasNotFound):
		respondError(c, response.CodeBadRequest, "error.alias_not_found", nil)
	case errors.Is(err, service.ErrUnsupportedProvider):
		respondError(c, response.CodeBadRequest, "error.provider_unsupported", nil)
	case errors.Is(err, service.ErrCredentialInvalid):
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrEmailConnectionFailed):
		respondErrorWithData(c, response.CodeBadRequest, "error.email_connection_failed", gin.H{"details": err.Error()}, err)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}
