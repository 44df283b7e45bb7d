package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/gatemail/internal/http/handlers/shared"
	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAnalyticsOverview 访问总览
func (h *Handler) GetAnalyticsOverview(c *gin.Context) {
	since, err := parseTimeNullable(strings.TrimSpace(c.Query("since")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	forceRefresh := false
	if raw := strings.TrimSpace(c.Query("force_refresh")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		forceRefresh = parsed
	}

	overview, err := h.AnalyticsService.Overview(c.Request.Context(), service.AnalyticsQueryInput{
		Since:        since,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, overview)
}

// GetAnalyticsSessions 会话列表
func (h *Handler) GetAnalyticsSessions(c *gin.Context) {
	pq := handlershared.ReadPage(c)
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items, total, err := h.AnalyticsService.Sessions(repository.SessionListFilter{
		Page:        pq.Page,
		PageSize:    pq.PageSize,
		Email:       c.Query("email"),
		CreatedFrom: createdFrom,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	pq.Respond(c, items, total)
}

// GetAnalyticsViews 内容访问统计
func (h *Handler) GetAnalyticsViews(c *gin.Context) {
	stats, err := h.AnalyticsService.ViewStats()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, stats)
}

// GetAnalyticsRecent 最近活动
func (h *Handler) GetAnalyticsRecent(c *gin.Context) {
	activity, err := h.AnalyticsService.RecentActivity()
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, activity)
}
