package admin

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gatemail/internal/authz"
	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

type authzMeResponse struct {
	AdminID  uint           `json:"admin_id"`
	IsSuper  bool           `json:"is_super"`
	Roles    []string       `json:"roles"`
	Policies []authz.Policy `json:"policies"`
}

type authzAdminItem struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	IsSuper     bool       `json:"is_super"`
	LastLoginAt *time.Time `json:"last_login_at"`
	Roles       []string   `json:"roles"`
}

// 角色名非法、保留角色、缺少 action 等都属于请求错误
var authzErrorRules = []handlershared.ErrorRule{
	{Target: authz.ErrUnavailable, Code: response.CodeInternal, Key: "error.internal"},
	{Target: authz.ErrRoleRequired, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: authz.ErrRoleReserved, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: authz.ErrActionRequired, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: authz.ErrAdminRequired, Code: response.CodeBadRequest, Key: "error.admin_id_invalid"},
}

// GetAuthzMe 当前管理员的角色与有效策略
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, authzMeResponse{
		AdminID:  adminID,
		IsSuper:  c.GetBool("admin_is_super"),
		Roles:    roles,
		Policies: policies,
	})
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// ListAuthzAdmins 管理员及其角色
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	items := make([]authzAdminItem, 0, len(admins))
	for _, admin := range admins {
		roles, err := h.AuthzService.GetAdminRoles(admin.ID)
		if err != nil {
			respondError(c, response.CodeInternal, "error.fetch_failed", err)
			return
		}
		items = append(items, authzAdminItem{
			ID:          admin.ID,
			Username:    admin.Username,
			IsSuper:     admin.IsSuper,
			LastLoginAt: admin.LastLoginAt,
			Roles:       roles,
		})
	}
	response.Success(c, items)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondAuthzError(c, err)
		return
	}
	requestLog(c).Infow("admin_authz_role_created", "operator_admin_id", currentAdminID(c), "role", role)
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色及其授权
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondAuthzError(c, err)
		return
	}
	requestLog(c).Infow("admin_authz_role_deleted", "operator_admin_id", currentAdminID(c), "role", role)
	response.Success(c, nil)
}

// GetAuthzRolePolicies 角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondAuthzError(c, err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	h.changeAuthzPolicy(c, true)
}

// RevokeAuthzPolicy 撤销策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	h.changeAuthzPolicy(c, false)
}

func (h *Handler) changeAuthzPolicy(c *gin.Context, grant bool) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	change := h.AuthzService.RevokeRolePolicy
	event := "admin_authz_policy_revoked"
	if grant {
		change = h.AuthzService.GrantRolePolicy
		event = "admin_authz_policy_granted"
	}
	if err := change(req.Role, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}
	requestLog(c).Infow(event,
		"operator_admin_id", currentAdminID(c),
		"role", req.Role,
		"object", req.Object,
		"action", strings.ToUpper(strings.TrimSpace(req.Action)),
	)
	response.Success(c, nil)
}

// GetAuthzAdminRoles 管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := h.lookupTargetAdmin(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 覆盖管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := h.lookupTargetAdmin(c)
	if !ok {
		return
	}
	var req authzAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondAuthzError(c, err)
		return
	}
	requestLog(c).Infow("admin_authz_admin_roles_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
		"roles", req.Roles,
	)
	response.Success(c, nil)
}

func (h *Handler) lookupTargetAdmin(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return 0, false
	}
	admin, err := h.AdminRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return 0, false
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return 0, false
	}
	return admin.ID, true
}

// roleParam 角色名来自路径参数，可能经过 URL 编码（如 role:xxx）
func roleParam(c *gin.Context) (string, bool) {
	raw := c.Param("role")
	role, err := url.PathUnescape(raw)
	if err != nil {
		role = raw
	}
	role = strings.TrimSpace(role)
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return "", false
	}
	return role, true
}

func respondAuthzError(c *gin.Context, err error) {
	handlershared.RespondMapped(c, err, authzErrorRules, response.CodeInternal, "error.internal")
}
