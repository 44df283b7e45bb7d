package admin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gatemail/internal/http/response"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
)

// CampaignRequest 活动创建/更新请求，recipients 可为数组或换行文本
type CampaignRequest struct {
	Title       string          `json:"title"`
	Subject     string          `json:"subject"`
	HTMLBody    string          `json:"html_body"`
	Recipients  json.RawMessage `json:"recipients"`
	FromAliasID *uint           `json:"from_alias_id"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
}

func (r CampaignRequest) toInput() (service.CampaignInput, error) {
	recipients, err := service.DecodeRecipients(r.Recipients)
	if err != nil {
		return service.CampaignInput{}, err
	}
	return service.CampaignInput{
		Title:       r.Title,
		Subject:     r.Subject,
		HTMLBody:    r.HTMLBody,
		Recipients:  recipients,
		FromAliasID: r.FromAliasID,
		ScheduledAt: r.ScheduledAt,
	}, nil
}

// GetAdminCampaigns 活动列表
func (h *Handler) GetAdminCampaigns(c *gin.Context) {
	campaigns, err := h.CampaignService.List(c.Query("status"), queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, campaigns)
}

// GetAdminCampaign 活动详情
func (h *Handler) GetAdminCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	campaign, err := h.CampaignService.Get(id)
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	response.Success(c, campaign)
}

// CreateCampaign 创建活动
func (h *Handler) CreateCampaign(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	campaign, err := h.CampaignService.Create(adminID, input)
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	requestLog(c).Infow("admin_campaign_created", "campaign_id", campaign.ID, "admin_id", adminID, "recipients", campaign.TotalRecipients)
	response.Success(c, campaign)
}

// UpdateCampaign 更新活动
func (h *Handler) UpdateCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	campaign, err := h.CampaignService.Update(id, input)
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	response.Success(c, campaign)
}

// DeleteCampaign 删除活动
func (h *Handler) DeleteCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.CampaignService.Delete(id); err != nil {
		respondCampaignError(c, err)
		return
	}
	requestLog(c).Infow("admin_campaign_deleted", "campaign_id", id, "admin_id", currentAdminID(c))
	response.Success(c, nil)
}

// SendCampaign 触发活动发送；入队时返回 202，否则同步返回发送汇总
func (h *Handler) SendCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	// 发送与请求生命周期解耦，客户端断开不影响已开始的批次
	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := h.CampaignService.Send(ctx, id, currentAdminID(c), currentRequestID(c))
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	if outcome.Queued {
		response.Accepted(c, gin.H{
			"queued":  true,
			"task_id": outcome.TaskID,
		})
		return
	}
	response.Success(c, outcome.Result)
}

// GetCampaignEmails 活动投递记录
func (h *Handler) GetCampaignEmails(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", 0)
	offset := queryInt(c, "offset", 0)
	emails, total, err := h.CampaignService.Emails(id, c.Query("status"), limit, offset)
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	response.Success(c, gin.H{
		"items":  emails,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetCampaignStats 活动统计
func (h *Handler) GetCampaignStats(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	stats, err := h.CampaignService.Stats(id)
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetCampaignAnalytics 单个活动的打开/点击趋势
func (h *Handler) GetCampaignAnalytics(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	h.respondCampaignAnalytics(c, id)
}

// GetCampaignsAnalytics 全部活动的打开/点击趋势
func (h *Handler) GetCampaignsAnalytics(c *gin.Context) {
	h.respondCampaignAnalytics(c, 0)
}

func (h *Handler) respondCampaignAnalytics(c *gin.Context, id uint) {
	analytics, err := h.CampaignService.Analytics(id, strings.TrimSpace(c.DefaultQuery("range", "30d")))
	if err != nil {
		respondCampaignError(c, err)
		return
	}
	response.Success(c, analytics)
}

func respondCampaignError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		respondError(c, response.CodeNotFound, "error.campaign_not_found", nil)
	case errors.Is(err, service.ErrCampaignInvalid):
		respondError(c, response.CodeBadRequest, "error.campaign_invalid", nil)
	case errors.Is(err, service.ErrCampaignStatusInvalid):
		respondError(c, response.CodeBadRequest, "error.campaign_status_invalid", nil)
	case errors.Is(err, service.ErrInvalidEmail):
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
	case errors.Is(err, service.ErrAliasNotFound):
		respondError(c, response.CodeBadRequest, "error.alias_not_found", nil)
	case errors.Is(err, service.ErrAnalyticsRangeInvalid):
		respondError(c, response.CodeBadRequest, "error.analytics_range_invalid", nil)
	case errors.Is(err, service.ErrUnsupportedProvider):
		respondError(c, response.CodeBadRequest, "error.provider_unsupported", nil)
	case errors.Is(err, service.ErrEmailServiceDisabled),
		errors.Is(err, service.ErrEmailServiceNotConfigured):
		respondError(c, response.CodeBadRequest, "error.email_service_not_configured", nil)
	case errors.Is(err, service.ErrEmailConnectionFailed):
		respondErrorWithData(c, response.CodeInternal, "error.email_connection_failed", gin.H{"details": err.Error()}, err)
	case errors.Is(err, service.ErrQueueUnavailable):
		respondError(c, response.CodeInternal, "error.queue_unavailable", err)
	default:
		respondError(c, response.CodeInternal, "error.campaign_send_failed", err)
	}
}
