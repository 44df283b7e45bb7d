package admin

import (
	"errors"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// TemplateRequest 邮件模板请求
type TemplateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	HTMLContent string `json:"html_content" binding:"required"`
	Category    string `json:"category"`
}

// GetTemplates 模板列表，可按分类过滤
func (h *Handler) GetTemplates(c *gin.Context) {
	templates, err := h.TemplateService.List(c.Query("category"))
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, templates)
}

// CreateTemplate 创建模板
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	template, err := h.TemplateService.Create(service.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		HTMLContent: req.HTMLContent,
		Category:    req.Category,
	})
	if err != nil {
		if errors.Is(err, service.ErrTemplateInvalid) {
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, template)
}

// DeleteTemplate 删除模板
func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.TemplateService.Delete(id); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			respondError(c, response.CodeNotFound, "error.template_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.delete_failed", err)
		return
	}
	response.Success(c, nil)
}
