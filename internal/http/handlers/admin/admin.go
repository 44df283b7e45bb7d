package admin

import (
	"time"

	"github.com/gatemail/internal/constants"
	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

var adminLoginErrorRules = []handlershared.ErrorRule{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.invalid_credentials"},
}

var changePasswordErrorRules = []handlershared.ErrorRule{
	{Target: service.ErrInvalidPassword, Code: response.CodeBadRequest, Key: "error.password_old_invalid"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.admin_not_found"},
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username       string                              `json:"username" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// LoginUser 登录响应中的账号摘要
type LoginUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	User      LoginUser `json:"user"`
	ExpiresAt string    `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if h.CaptchaService != nil {
		if err := h.CaptchaService.Verify(constants.CaptchaSceneAdminLogin, req.CaptchaPayload.ToServicePayload()); err != nil {
			handlershared.RespondMapped(c, err, handlershared.CaptchaErrorRules, response.CodeInternal, "error.captcha_verify_failed")
			return
		}
	}

	result, err := h.AuthService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handlershared.RespondMapped(c, err, adminLoginErrorRules, response.CodeInternal, "error.login_failed")
		return
	}
	response.Success(c, LoginResponse{
		Token: result.Token,
		User: LoginUser{
			ID:       result.Admin.ID,
			Username: result.Admin.Username,
			IsSuper:  result.Admin.IsSuper,
		},
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改当前管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthService.ChangePassword(c.Request.Context(), id, req.OldPassword, req.NewPassword); err != nil {
		handlershared.RespondMapped(c, err, changePasswordErrorRules, response.CodeInternal, "error.save_failed")
		return
	}

	response.Success(c, nil)
}

// GetAdminProfile 当前管理员信息
func (h *Handler) GetAdminProfile(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return
	}
	response.Success(c, admin)
}
