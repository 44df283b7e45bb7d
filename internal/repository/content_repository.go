package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// ContentRepository 受保护内容数据访问接口
type ContentRepository interface {
	GetByUUID(uuid string) (*models.ProtectedContent, error)
	GetByID(id uint) (*models.ProtectedContent, error)
	List(filter ContentListFilter) ([]models.ProtectedContent, int64, error)
	Create(content *models.ProtectedContent) error
	Update(content *models.ProtectedContent) error
	Delete(id uint) error
	IncrementViewCount(uuid string) error
	CountActive(now time.Time) (int64, error)
}

// GormContentRepository GORM 实现
type GormContentRepository struct {
	db *gorm.DB
}

// NewContentRepository 创建内容仓库
func NewContentRepository(db *gorm.DB) *GormContentRepository {
	return &GormContentRepository{db: db}
}

// GetByUUID 根据 UUID 获取内容
func (r *GormContentRepository) GetByUUID(uuid string) (*models.ProtectedContent, error) {
	var content models.ProtectedContent
	if err := r.db.Where("uuid = ?", uuid).First(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}

// GetByID 根据 ID 获取内容
func (r *GormContentRepository) GetByID(id uint) (*models.ProtectedContent, error) {
	var content models.ProtectedContent
	if err := r.db.First(&content, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}

// List 分页查询内容
func (r *GormContentRepository) List(filter ContentListFilter) ([]models.ProtectedContent, int64, error) {
	query := r.db.Model(&models.ProtectedContent{})
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("(title "+dialectOf(r.db).like()+" ? OR uuid = ?)", like, search)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.ProtectedContent, 0)
	if err := applyPagination(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Create 创建内容
func (r *GormContentRepository) Create(content *models.ProtectedContent) error {
	return r.db.Create(content).Error
}

// Update 更新内容
func (r *GormContentRepository) Update(content *models.ProtectedContent) error {
	return r.db.Save(content).Error
}

// Delete 删除内容
func (r *GormContentRepository) Delete(id uint) error {
	return r.db.Delete(&models.ProtectedContent{}, id).Error
}

// IncrementViewCount 原子递增访问次数
func (r *GormContentRepository) IncrementViewCount(uuid string) error {
	return r.db.Model(&models.ProtectedContent{}).
		Where("uuid = ?", uuid).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// CountActive 统计当前可访问的内容数
func (r *GormContentRepository) CountActive(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.ProtectedContent{}).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Count(&count).Error
	return count, err
}
