package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// UserSessionRepository 验证会话数据访问接口
type UserSessionRepository interface {
	Create(session *models.UserSession) error
	GetBySessionID(sessionID string) (*models.UserSession, error)
	MarkCodeVerified(sessionID string, at time.Time) error
	MarkPageViewed(sessionID string, at time.Time) error
	List(filter SessionListFilter) ([]models.UserSession, int64, error)
	Recent(limit int) ([]models.UserSession, error)
	Count(since *time.Time) (int64, error)
	CountVerified(since *time.Time) (int64, error)
	CountDistinctEmails(since *time.Time) (int64, error)
	CountDistinctIPs(since *time.Time) (int64, error)
}

// GormUserSessionRepository GORM 实现
type GormUserSessionRepository struct {
	db *gorm.DB
}

// NewUserSessionRepository 创建验证会话仓库
func NewUserSessionRepository(db *gorm.DB) *GormUserSessionRepository {
	return &GormUserSessionRepository{db: db}
}

// Create 创建会话
func (r *GormUserSessionRepository) Create(session *models.UserSession) error {
	return r.db.Create(session).Error
}

// GetBySessionID 根据会话 ID 获取
func (r *GormUserSessionRepository) GetBySessionID(sessionID string) (*models.UserSession, error) {
	var session models.UserSession
	if err := r.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// MarkCodeVerified 记录验证码通过时间
func (r *GormUserSessionRepository) MarkCodeVerified(sessionID string, at time.Time) error {
	return r.db.Model(&models.UserSession{}).Where("session_id = ?", sessionID).Update("code_verified_at", at).Error
}

// MarkPageViewed 记录受保护页面访问时间
func (r *GormUserSessionRepository) MarkPageViewed(sessionID string, at time.Time) error {
	return r.db.Model(&models.UserSession{}).Where("session_id = ?", sessionID).Update("protected_page_viewed_at", at).Error
}

// List 分页查询会话
func (r *GormUserSessionRepository) List(filter SessionListFilter) ([]models.UserSession, int64, error) {
	query := r.db.Model(&models.UserSession{})
	if email := strings.ToLower(strings.TrimSpace(filter.Email)); email != "" {
		query = query.Where("email = ?", email)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	sessions := make([]models.UserSession, 0)
	if err := applyPagination(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Recent 最近创建的会话
func (r *GormUserSessionRepository) Recent(limit int) ([]models.UserSession, error) {
	if limit <= 0 {
		limit = 10
	}
	sessions := make([]models.UserSession, 0, limit)
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// Count 会话总数
func (r *GormUserSessionRepository) Count(since *time.Time) (int64, error) {
	var count int64
	err := sinceScope(r.db.Model(&models.UserSession{}), "created_at", since).Count(&count).Error
	return count, err
}

// CountVerified 验证通过的会话数
func (r *GormUserSessionRepository) CountVerified(since *time.Time) (int64, error) {
	var count int64
	err := sinceScope(r.db.Model(&models.UserSession{}), "created_at", since).
		Where("code_verified_at IS NOT NULL").
		Count(&count).Error
	return count, err
}

// CountDistinctEmails 去重邮箱数
func (r *GormUserSessionRepository) CountDistinctEmails(since *time.Time) (int64, error) {
	var count int64
	err := sinceScope(r.db.Model(&models.UserSession{}), "created_at", since).
		Distinct("email").
		Count(&count).Error
	return count, err
}

// CountDistinctIPs 去重 IP 数
func (r *GormUserSessionRepository) CountDistinctIPs(since *time.Time) (int64, error) {
	var count int64
	err := sinceScope(r.db.Model(&models.UserSession{}), "created_at", since).
		Where("ip_address <> ''").
		Distinct("ip_address").
		Count(&count).Error
	return count, err
}

func sinceScope(query *gorm.DB, column string, since *time.Time) *gorm.DB {
	if since == nil {
		return query
	}
	return query.Where(column+" >= ?", *since)
}
