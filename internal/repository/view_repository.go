package repository

import (
	"time"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// ViewRepository 访问记录数据访问接口
type ViewRepository interface {
	CreateContentView(view *models.ContentView) error
	CreatePageView(view *models.PageView) error
	CountContentViews(since *time.Time) (int64, error)
	CountPageViews(since *time.Time) (int64, error)
	TopContent(since *time.Time, limit int) ([]ContentRankingRow, error)
	RecentContentViews(limit int) ([]models.ContentView, error)
}

// GormViewRepository GORM 实现
type GormViewRepository struct {
	db *gorm.DB
}

// NewViewRepository 创建访问记录仓库
func NewViewRepository(db *gorm.DB) *GormViewRepository {
	return &GormViewRepository{db: db}
}

// CreateContentView 写入内容访问
func (r *GormViewRepository) CreateContentView(view *models.ContentView) error {
	return r.db.Create(view).Error
}

// CreatePageView 写入页面访问
func (r *GormViewRepository) CreatePageView(view *models.PageView) error {
	return r.db.Create(view).Error
}

// CountContentViews 内容访问数
func (r *GormViewRepository) CountContentViews(since *time.Time) (int64, error) {
	var count int64
	err := sinceScope(r.db.Model(&models.ContentView{}), "viewed_at", since).Count(&count).Error
	return count, err
}

// CountPageViews 页面访问数
func (r *GormViewRepository) CountPageViews(since *time.Time) (int64, error) {
	var count int64
	err := sinceScope(r.db.Model(&models.PageView{}), "viewed_at", since).Count(&count).Error
	return count, err
}

// TopContent 访问量最高的内容
func (r *GormViewRepository) TopContent(since *time.Time, limit int) ([]ContentRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]ContentRankingRow, 0, limit)
	query := r.db.Model(&models.ContentView{}).
		Select("content_views.content_uuid as content_uuid, COALESCE(protected_content.title, '') as title, COUNT(*) as views").
		Joins("LEFT JOIN protected_content ON protected_content.uuid = content_views.content_uuid")
	err := sinceScope(query, "content_views.viewed_at", since).
		Group("content_views.content_uuid, protected_content.title").
		Order("views DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// RecentContentViews 最近的内容访问
func (r *GormViewRepository) RecentContentViews(limit int) ([]models.ContentView, error) {
	if limit <= 0 {
		limit = 10
	}
	views := make([]models.ContentView, 0, limit)
	err := r.db.Order("viewed_at DESC, id DESC").Limit(limit).Find(&views).Error
	return views, err
}
