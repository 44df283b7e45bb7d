package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/queue"
	"github.com/gatemail/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	campaignDefaultListLimit  = 50
	campaignMaxListLimit      = 200
	campaignDefaultEmailLimit = 100
	campaignDueBatchLimit     = 20
)

// CampaignInput 活动创建/更新输入
type CampaignInput struct {
	Title       string
	Subject     string
	HTMLBody    string
	Recipients  []string
	FromAliasID *uint
	ScheduledAt *time.Time
}

// CampaignSendOutcome 触发发送的结果，Queued 为 true 时 Result 为空
type CampaignSendOutcome struct {
	Queued bool                `json:"queued"`
	TaskID string              `json:"task_id,omitempty"`
	Result *CampaignSendResult `json:"result,omitempty"`
}

// CampaignStats 活动统计
type CampaignStats struct {
	CampaignID      uint             `json:"campaign_id"`
	Status          string           `json:"status"`
	TotalRecipients int              `json:"total_recipients"`
	TotalSent       int              `json:"total_sent"`
	TotalFailed     int              `json:"total_failed"`
	TotalOpened     int64            `json:"total_opened"`
	TotalClicked    int64            `json:"total_clicked"`
	OpenRate        string           `json:"open_rate"`
	ClickRate       string           `json:"click_rate"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
}

// CampaignDailyPoint 单日打开/点击
type CampaignDailyPoint struct {
	Date   string `json:"date"`
	Opens  int64  `json:"opens"`
	Clicks int64  `json:"clicks"`
}

// CampaignAnalytics 活动趋势
type CampaignAnalytics struct {
	CampaignID uint                 `json:"campaign_id,omitempty"`
	Range      string               `json:"range"`
	From       string               `json:"from"`
	To         string               `json:"to"`
	Points     []CampaignDailyPoint `json:"points"`
}

// CampaignService 活动管理服务
type CampaignService struct {
	repo        repository.CampaignRepository
	emailRepo   repository.CampaignEmailRepository
	aliasRepo   repository.AliasRepository
	dispatcher  *CampaignDispatcher
	queueClient *queue.Client
	now         func() time.Time
}

// NewCampaignService 创建活动服务
func NewCampaignService(
	repo repository.CampaignRepository,
	emailRepo repository.CampaignEmailRepository,
	aliasRepo repository.AliasRepository,
	dispatcher *CampaignDispatcher,
	queueClient *queue.Client,
) *CampaignService {
	return &CampaignService{
		repo:        repo,
		emailRepo:   emailRepo,
		aliasRepo:   aliasRepo,
		dispatcher:  dispatcher,
		queueClient: queueClient,
		now:         time.Now,
	}
}

// DecodeRecipients 收件人既可以是字符串数组，也可以是按行/逗号分隔的文本
func DecodeRecipients(raw json.RawMessage) ([]string, error) {
	raw = json.RawMessage(bytes.TrimSpace(raw))
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: recipients must be a string array", ErrCampaignInvalid)
		}
		return normalizeRecipients(list), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: recipients must be text or an array", ErrCampaignInvalid)
	}
	return ParseRecipientText(text), nil
}

// ParseRecipientText 解析按行/逗号/分号分隔的收件人
func ParseRecipientText(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})
	return normalizeRecipients(fields)
}

// List 活动列表
func (s *CampaignService) List(status string, limit, offset int) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = campaignDefaultListLimit
	}
	if limit > campaignMaxListLimit {
		limit = campaignMaxListLimit
	}
	return s.repo.List(repository.CampaignListFilter{
		Status: strings.TrimSpace(status),
		Limit:  limit,
		Offset: offset,
	})
}

// Get 获取活动
func (s *CampaignService) Get(id uint) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// Create 创建活动，设置了预定时间则进入 scheduled 状态
func (s *CampaignService) Create(adminID uint, input CampaignInput) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Status:    constants.CampaignStatusDraft,
		CreatedBy: adminID,
	}
	if err := s.apply(campaign, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Update 更新活动，发送中或已发送的活动不可修改
func (s *CampaignService) Update(id uint, input CampaignInput) (*models.Campaign, error) {
	campaign, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !isCampaignEditable(campaign.Status) {
		return nil, fmt.Errorf("%w: %s", ErrCampaignStatusInvalid, campaign.Status)
	}
	if err := s.apply(campaign, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Delete 删除活动，发送中的活动不可删除
func (s *CampaignService) Delete(id uint) error {
	campaign, err := s.Get(id)
	if err != nil {
		return err
	}
	if campaign.Status == constants.CampaignStatusSending {
		return fmt.Errorf("%w: %s", ErrCampaignStatusInvalid, campaign.Status)
	}
	return s.repo.Delete(id)
}

// Send 触发发送：队列可用时预检连接后入队，否则同步发送
func (s *CampaignService) Send(ctx context.Context, id, adminID uint, requestID string) (*CampaignSendOutcome, error) {
	if s.queueClient.Enabled() {
		if _, _, err := s.dispatcher.Prepare(ctx, id); err != nil {
			return nil, err
		}
		taskID, err := s.queueClient.EnqueueCampaignSend(queue.CampaignSendPayload{
			CampaignID:  id,
			RequestedBy: adminID,
			RequestID:   requestID,
		})
		if errors.Is(err, queue.ErrAlreadyQueued) {
			return nil, fmt.Errorf("%w: %v", ErrCampaignStatusInvalid, err)
		}
		if err != nil {
			logger.Errorw("campaign_send_enqueue_failed", "campaign_id", id, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		logger.Infow("campaign_send_enqueued", "campaign_id", id, "task_id", taskID, "requested_by", adminID)
		return &CampaignSendOutcome{Queued: true, TaskID: taskID}, nil
	}

	result, err := s.dispatcher.SendCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignSendOutcome{Queued: false, Result: result}, nil
}

// DispatchDue 触发已到预定时间的活动，返回成功触发的数量
func (s *CampaignService) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueScheduled(s.now(), campaignDueBatchLimit)
	if err != nil {
		return 0, err
	}
	dispatched := 0
	for _, campaign := range due {
		if _, err := s.Send(ctx, campaign.ID, campaign.CreatedBy, ""); err != nil {
			logger.Warnw("campaign_scheduled_dispatch_failed", "campaign_id", campaign.ID, "error", err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// Emails 活动投递记录
func (s *CampaignService) Emails(id uint, status string, limit, offset int) ([]models.CampaignEmail, int64, error) {
	if _, err := s.Get(id); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = campaignDefaultEmailLimit
	}
	if limit > campaignMaxListLimit {
		limit = campaignMaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.emailRepo.List(repository.CampaignEmailListFilter{
		CampaignID: id,
		Status:     strings.TrimSpace(status),
		Limit:      limit,
		Offset:     offset,
	})
}

// Stats 活动统计，打开率与点击率以已发送数为分母
func (s *CampaignService) Stats(id uint) (*CampaignStats, error) {
	campaign, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.emailRepo.CountByStatus(id)
	if err != nil {
		return nil, err
	}
	opened, err := s.emailRepo.CountOpened(id)
	if err != nil {
		return nil, err
	}
	clicked, err := s.emailRepo.CountClicked(id)
	if err != nil {
		return nil, err
	}
	return &CampaignStats{
		CampaignID:      campaign.ID,
		Status:          campaign.Status,
		TotalRecipients: campaign.TotalRecipients,
		TotalSent:       campaign.TotalSent,
		TotalFailed:     campaign.TotalFailed,
		TotalOpened:     opened,
		TotalClicked:    clicked,
		OpenRate:        percentOf(opened, int64(campaign.TotalSent)),
		ClickRate:       percentOf(clicked, int64(campaign.TotalSent)),
		StatusBreakdown: breakdown,
	}, nil
}

// Analytics 活动按天打开/点击趋势，id 为 0 时统计全部活动
func (s *CampaignService) Analytics(id uint, rangeKey string) (*CampaignAnalytics, error) {
	if id > 0 {
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
	}
	window, err := resolveAnalyticsWindow(rangeKey, s.now())
	if err != nil {
		return nil, err
	}
	rows, err := s.emailRepo.DailyEvents(id, window.startAt)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*CampaignDailyPoint)
	points := make([]CampaignDailyPoint, 0, window.days)
	for day := window.startAt; day.Before(window.endAt); day = day.AddDate(0, 0, 1) {
		points = append(points, CampaignDailyPoint{Date: day.Format("2006-01-02")})
	}
	for i := range points {
		byDay[points[i].Date] = &points[i]
	}
	for _, row := range rows {
		point, ok := byDay[normalizeDay(row.Day)]
		if !ok {
			continue
		}
		switch row.EventType {
		case constants.TrackingEventOpen:
			point.Opens += row.Total
		case constants.TrackingEventClick:
			point.Clicks += row.Total
		}
	}

	return &CampaignAnalytics{
		CampaignID: id,
		Range:      window.rangeKey,
		From:       window.startAt.Format("2006-01-02"),
		To:         window.endAt.AddDate(0, 0, -1).Format("2006-01-02"),
		Points:     points,
	}, nil
}

func (s *CampaignService) apply(campaign *models.Campaign, input CampaignInput) error {
	if title := strings.TrimSpace(input.Title); title != "" {
		campaign.Title = title
	}
	if subject := strings.TrimSpace(input.Subject); subject != "" {
		campaign.Subject = subject
	}
	if strings.TrimSpace(input.HTMLBody) != "" {
		campaign.HTMLBody = input.HTMLBody
	}
	if input.Recipients != nil {
		recipients := normalizeRecipients(input.Recipients)
		for _, recipient := range recipients {
			if !IsValidEmail(recipient) {
				return fmt.Errorf("%w: invalid recipient %s", ErrCampaignInvalid, recipient)
			}
		}
		campaign.Recipients = models.StringArray(recipients)
		campaign.TotalRecipients = len(recipients)
	}
	if input.FromAliasID != nil {
		if *input.FromAliasID == 0 {
			campaign.FromAliasID = nil
		} else {
			alias, err := s.aliasRepo.GetByID(*input.FromAliasID)
			if err != nil {
				return err
			}
			if alias == nil {
				return ErrAliasNotFound
			}
			aliasID := alias.ID
			campaign.FromAliasID = &aliasID
		}
	}
	if input.ScheduledAt != nil {
		scheduledAt := *input.ScheduledAt
		campaign.ScheduledAt = &scheduledAt
		if campaign.Status == constants.CampaignStatusDraft {
			campaign.Status = constants.CampaignStatusScheduled
		}
	}

	if campaign.Title == "" || campaign.Subject == "" || strings.TrimSpace(campaign.HTMLBody) == "" {
		return fmt.Errorf("%w: title, subject and html body are required", ErrCampaignInvalid)
	}
	if len(campaign.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrCampaignInvalid)
	}
	return nil
}

// 状态单向流转：draft/scheduled → sending → sent|partially_sent|failed
func isCampaignEditable(status string) bool {
	switch status {
	case constants.CampaignStatusDraft, constants.CampaignStatusScheduled:
		return true
	}
	return false
}

func isCampaignSendable(status string) bool {
	return isCampaignEditable(status)
}

// percentOf 百分比，保留两位小数
func percentOf(part, total int64) string {
	if total <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		StringFixed(2)
}

type analyticsWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	days     int
}

func resolveAnalyticsWindow(rangeKey string, now time.Time) (analyticsWindow, error) {
	rangeKey = strings.ToLower(strings.TrimSpace(rangeKey))
	if rangeKey == "" {
		rangeKey = constants.AnalyticsRange7Days
	}
	var days int
	switch rangeKey {
	case constants.AnalyticsRange7Days:
		days = 7
	case constants.AnalyticsRange30Days:
		days = 30
	case constants.AnalyticsRange90Days:
		days = 90
	case constants.AnalyticsRangeOneYear:
		days = 365
	default:
		return analyticsWindow{}, fmt.Errorf("%w: %s", ErrAnalyticsRangeInvalid, rangeKey)
	}
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return analyticsWindow{
		rangeKey: rangeKey,
		startAt:  todayStart.AddDate(0, 0, -(days - 1)),
		endAt:    todayStart.AddDate(0, 0, 1),
		days:     days,
	}, nil
}

// normalizeDay 兼容不同数据库返回的日期格式
func normalizeDay(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 10 {
		return raw[:10]
	}
	return raw
}
