package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gatemail/internal/cache"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
)

const (
	analyticsCacheTTL        = 45 * time.Second
	analyticsRecentLimit     = 10
	analyticsTopContentLimit = 5
	// 超过该时长仍未验证的会话视为过期
	sessionPendingWindow = 10 * time.Minute
)

// AnalyticsQueryInput 访问统计查询
type AnalyticsQueryInput struct {
	Since        *time.Time
	ForceRefresh bool
}

// AnalyticsOverview 访问总览
type AnalyticsOverview struct {
	TotalSessions    int64 `json:"totalSessions"`
	VerifiedSessions int64 `json:"verifiedSessions"`
	PageViews        int64 `json:"pageViews"`
	ContentViews     int64 `json:"contentViews"`
	ActiveContent    int64 `json:"activeContent"`
	UniqueEmails     int64 `json:"uniqueEmails"`
	UniqueIPs        int64 `json:"uniqueIPs"`
	VerificationRate string `json:"verificationRate"`
}

// SessionItem 后台会话列表项，Status 由验证时间派生
type SessionItem struct {
	models.UserSession
	Status string `json:"status"`
}

// ViewStats 内容访问统计
type ViewStats struct {
	Total      int64                          `json:"total"`
	Today      int64                          `json:"today"`
	TopContent []repository.ContentRankingRow `json:"topContent"`
}

// RecentActivity 最近会话与访问
type RecentActivity struct {
	Sessions []SessionItem       `json:"sessions"`
	Views    []models.ContentView `json:"views"`
}

// AnalyticsService 访问统计服务
type AnalyticsService struct {
	sessionRepo repository.UserSessionRepository
	viewRepo    repository.ViewRepository
	contentRepo repository.ContentRepository
	store       cache.Store
	now         func() time.Time
}

// NewAnalyticsService 创建访问统计服务
func NewAnalyticsService(
	sessionRepo repository.UserSessionRepository,
	viewRepo repository.ViewRepository,
	contentRepo repository.ContentRepository,
	store cache.Store,
) *AnalyticsService {
	return &AnalyticsService{
		sessionRepo: sessionRepo,
		viewRepo:    viewRepo,
		contentRepo: contentRepo,
		store:       store,
		now:         time.Now,
	}
}

// Overview 访问总览，结果短时缓存
func (s *AnalyticsService) Overview(ctx context.Context, input AnalyticsQueryInput) (*AnalyticsOverview, error) {
	cacheKey := "analytics:overview:all"
	if input.Since != nil {
		cacheKey = fmt.Sprintf("analytics:overview:%d", input.Since.Unix())
	}
	if !input.ForceRefresh && s.store != nil {
		var cached AnalyticsOverview
		hit, err := s.store.GetJSON(ctx, cacheKey, &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	since := input.Since
	overview := &AnalyticsOverview{}
	var err error
	if overview.TotalSessions, err = s.sessionRepo.Count(since); err != nil {
		return nil, err
	}
	if overview.VerifiedSessions, err = s.sessionRepo.CountVerified(since); err != nil {
		return nil, err
	}
	if overview.PageViews, err = s.viewRepo.CountPageViews(since); err != nil {
		return nil, err
	}
	if overview.ContentViews, err = s.viewRepo.CountContentViews(since); err != nil {
		return nil, err
	}
	if overview.ActiveContent, err = s.contentRepo.CountActive(s.now()); err != nil {
		return nil, err
	}
	if overview.UniqueEmails, err = s.sessionRepo.CountDistinctEmails(since); err != nil {
		return nil, err
	}
	if overview.UniqueIPs, err = s.sessionRepo.CountDistinctIPs(since); err != nil {
		return nil, err
	}
	overview.VerificationRate = percentOf(overview.VerifiedSessions, overview.TotalSessions)

	if s.store != nil {
		_ = s.store.SetJSON(ctx, cacheKey, overview, analyticsCacheTTL)
	}
	return overview, nil
}

// Sessions 会话分页列表
func (s *AnalyticsService) Sessions(filter repository.SessionListFilter) ([]SessionItem, int64, error) {
	sessions, total, err := s.sessionRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	return s.decorateSessions(sessions), total, nil
}

// ViewStats 内容访问统计（总数、今日、热门内容）
func (s *AnalyticsService) ViewStats() (*ViewStats, error) {
	total, err := s.viewRepo.CountContentViews(nil)
	if err != nil {
		return nil, err
	}
	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.viewRepo.CountContentViews(&todayStart)
	if err != nil {
		return nil, err
	}
	top, err := s.viewRepo.TopContent(nil, analyticsTopContentLimit)
	if err != nil {
		return nil, err
	}
	return &ViewStats{Total: total, Today: today, TopContent: top}, nil
}

// RecentActivity 最近 10 条会话与内容访问
func (s *AnalyticsService) RecentActivity() (*RecentActivity, error) {
	sessions, err := s.sessionRepo.Recent(analyticsRecentLimit)
	if err != nil {
		return nil, err
	}
	views, err := s.viewRepo.RecentContentViews(analyticsRecentLimit)
	if err != nil {
		return nil, err
	}
	return &RecentActivity{Sessions: s.decorateSessions(sessions), Views: views}, nil
}

func (s *AnalyticsService) decorateSessions(sessions []models.UserSession) []SessionItem {
	now := s.now()
	items := make([]SessionItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, SessionItem{UserSession: session, Status: deriveSessionStatus(session, now)})
	}
	return items
}

func deriveSessionStatus(session models.UserSession, now time.Time) string {
	if session.CodeVerifiedAt != nil {
		return constants.SessionStatusVerified
	}
	if now.Sub(session.CreatedAt) > sessionPendingWindow {
		return constants.SessionStatusExpired
	}
	return constants.SessionStatusPending
}
