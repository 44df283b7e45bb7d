package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"

	"github.com/google/uuid"
)

// RequestMeta 访问者信息
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// ContentPayload 对外返回的受保护内容
type ContentPayload struct {
	UUID        string    `json:"uuid"`
	Title       string    `json:"title"`
	ContentHTML string    `json:"content_html"`
	CreatedAt   time.Time `json:"created_at"`
	ViewCount   int64     `json:"view_count"`
}

// ContentInput 后台创建/更新内容输入
type ContentInput struct {
	Title       string
	ContentHTML string
	ExpiresAt   *time.Time
	// ClearExpiry 更新时去掉过期时间；ExpiresAt 为空且未设置时保留原值
	ClearExpiry bool
	IsActive    *bool
	Metadata    models.JSON
}

// ContentService 受保护内容服务
type ContentService struct {
	contentRepo  repository.ContentRepository
	viewRepo     repository.ViewRepository
	sessionRepo  repository.UserSessionRepository
	verification *VerificationService
	now          func() time.Time
}

// NewContentService 创建内容服务
func NewContentService(
	contentRepo repository.ContentRepository,
	viewRepo repository.ViewRepository,
	sessionRepo repository.UserSessionRepository,
	verification *VerificationService,
) *ContentService {
	return &ContentService{
		contentRepo:  contentRepo,
		viewRepo:     viewRepo,
		sessionRepo:  sessionRepo,
		verification: verification,
		now:          time.Now,
	}
}

// GetForToken 校验访问令牌后返回内容并记录访问
func (s *ContentService) GetForToken(ctx context.Context, contentUUID, token string, meta RequestMeta) (*ContentPayload, error) {
	grant, err := s.verification.ValidateAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}
	contentUUID = strings.TrimSpace(contentUUID)
	if grant.TargetContentUUID != "" && grant.TargetContentUUID != contentUUID {
		return nil, &WrongContentError{TargetContentUUID: grant.TargetContentUUID}
	}

	content, err := s.contentRepo.GetByUUID(contentUUID)
	if err != nil {
		return nil, err
	}
	if content == nil || !content.IsViewable(s.now()) {
		return nil, ErrContentNotFound
	}

	s.recordContentView(content, grant, meta)

	return &ContentPayload{
		UUID:        content.UUID,
		Title:       content.Title,
		ContentHTML: content.ContentHTML,
		CreatedAt:   content.CreatedAt,
		ViewCount:   content.ViewCount + 1,
	}, nil
}

// RecordPageView 记录受保护页面访问，令牌无效时返回错误
func (s *ContentService) RecordPageView(ctx context.Context, token string, meta RequestMeta) error {
	grant, err := s.verification.ValidateAccessToken(ctx, token)
	if err != nil {
		return err
	}
	now := s.now()
	view := &models.PageView{
		IPAddress: meta.ClientIP,
		UserAgent: truncateRunes(meta.UserAgent, 512),
		ViewedAt:  now,
	}
	if session := s.lookupSession(grant.SessionID); session != nil {
		view.UserSessionID = &session.ID
		view.Email = session.Email
	}
	if err := s.viewRepo.CreatePageView(view); err != nil {
		logger.Errorw("page_view_record_failed", "session_id", grant.SessionID, "error", err)
	}
	if err := s.sessionRepo.MarkPageViewed(grant.SessionID, now); err != nil {
		logger.Errorw("user_session_mark_page_viewed_failed", "session_id", grant.SessionID, "error", err)
	}
	return nil
}

func (s *ContentService) recordContentView(content *models.ProtectedContent, grant *AccessGrant, meta RequestMeta) {
	view := &models.ContentView{
		ContentUUID:       content.UUID,
		IPAddress:         meta.ClientIP,
		UserAgent:         truncateRunes(meta.UserAgent, 512),
		AccessTokenPrefix: grant.TokenPrefix(),
		ViewedAt:          s.now(),
	}
	if session := s.lookupSession(grant.SessionID); session != nil {
		view.UserSessionID = &session.ID
		view.Email = session.Email
	}
	if err := s.viewRepo.CreateContentView(view); err != nil {
		logger.Errorw("content_view_record_failed", "content_uuid", content.UUID, "error", err)
	}
	if err := s.contentRepo.IncrementViewCount(content.UUID); err != nil {
		logger.Errorw("content_view_count_increment_failed", "content_uuid", content.UUID, "error", err)
	}
}

func (s *ContentService) lookupSession(sessionID string) *models.UserSession {
	if sessionID == "" {
		return nil
	}
	session, err := s.sessionRepo.GetBySessionID(sessionID)
	if err != nil {
		logger.Warnw("user_session_lookup_failed", "session_id", sessionID, "error", err)
		return nil
	}
	return session
}

// List 后台内容列表
func (s *ContentService) List(filter repository.ContentListFilter) ([]models.ProtectedContent, int64, error) {
	return s.contentRepo.List(filter)
}

// Get 后台获取单条内容
func (s *ContentService) Get(id uint) (*models.ProtectedContent, error) {
	content, err := s.contentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, ErrContentNotFound
	}
	return content, nil
}

// Create 创建受保护内容，UUID 自动生成
func (s *ContentService) Create(input ContentInput) (*models.ProtectedContent, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.ContentHTML) == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrContentInvalid)
	}
	content := &models.ProtectedContent{
		UUID:        uuid.NewString(),
		Title:       title,
		ContentHTML: input.ContentHTML,
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
		Metadata:    input.Metadata,
	}
	if err := s.contentRepo.Create(content); err != nil {
		return nil, err
	}
	if input.IsActive != nil && !*input.IsActive {
		content.IsActive = false
		if err := s.contentRepo.Update(content); err != nil {
			return nil, err
		}
	}
	return content, nil
}

// Update 更新受保护内容
func (s *ContentService) Update(id uint, input ContentInput) (*models.ProtectedContent, error) {
	content, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		content.Title = title
	}
	if strings.TrimSpace(input.ContentHTML) != "" {
		content.ContentHTML = input.ContentHTML
	}
	switch {
	case input.ExpiresAt != nil:
		content.ExpiresAt = input.ExpiresAt
	case input.ClearExpiry:
		content.ExpiresAt = nil
	}
	if input.IsActive != nil {
		content.IsActive = *input.IsActive
	}
	if input.Metadata != nil {
		content.Metadata = input.Metadata
	}
	if err := s.contentRepo.Update(content); err != nil {
		return nil, err
	}
	return content, nil
}

// Delete 删除受保护内容
func (s *ContentService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.contentRepo.Delete(id)
}
