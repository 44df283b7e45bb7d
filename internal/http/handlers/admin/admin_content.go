package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// ContentRequest 受保护内容创建/更新请求
type ContentRequest struct {
	Title       string      `json:"title"`
	ContentHTML string      `json:"content_html"`
	ExpiresAt   *time.Time  `json:"expires_at"`
	ClearExpiry bool        `json:"clear_expires_at"`
	IsActive    *bool       `json:"is_active"`
	Metadata    models.JSON `json:"metadata"`
}

func (r ContentRequest) toInput() service.ContentInput {
	return service.ContentInput{
		Title:       r.Title,
		ContentHTML: r.ContentHTML,
		ExpiresAt:   r.ExpiresAt,
		ClearExpiry: r.ClearExpiry,
		IsActive:    r.IsActive,
		Metadata:    r.Metadata,
	}
}

// GetAdminContentList 受保护内容列表
func (h *Handler) GetAdminContentList(c *gin.Context) {
	pq := handlershared.ReadPage(c)
	filter := repository.ContentListFilter{
		Page:     pq.Page,
		PageSize: pq.PageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		filter.IsActive = &active
	}

	items, total, err := h.ContentService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	pq.Respond(c, items, total)
}

// GetAdminContent 受保护内容详情
func (h *Handler) GetAdminContent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	content, err := h.ContentService.Get(id)
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, content)
}

// CreateContent 创建受保护内容
func (h *Handler) CreateContent(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	content, err := h.ContentService.Create(req.toInput())
	if err != nil {
		respondContentError(c, err)
		return
	}
	requestLog(c).Infow("admin_content_created", "content_id", content.ID, "uuid", content.UUID, "admin_id", currentAdminID(c))
	response.Success(c, content)
}

// UpdateContent 更新受保护内容
func (h *Handler) UpdateContent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	content, err := h.ContentService.Update(id, req.toInput())
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, content)
}

// DeleteContent 删除受保护内容
func (h *Handler) DeleteContent(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.ContentService.Delete(id); err != nil {
		respondContentError(c, err)
		return
	}
	requestLog(c).Infow("admin_content_deleted", "content_id", id, "admin_id", currentAdminID(c))
	response.Success(c, nil)
}

func respondContentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContentNotFound):
		respondError(c, response.CodeNotFound, "error.content_not_found", nil)
	case errors.Is(err, service.ErrContentInvalid):
		respondError(c, response.CodeBadRequest, "error.content_invalid", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}
