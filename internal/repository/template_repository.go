package repository

import (
	"errors"
	"strings"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// TemplateRepository 邮件模板数据访问接口
type TemplateRepository interface {
	List(category string) ([]models.EmailTemplate, error)
	GetByID(id uint) (*models.EmailTemplate, error)
	Create(tpl *models.EmailTemplate) error
	Delete(id uint) error
}

// GormTemplateRepository GORM 实现
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建模板仓库
func NewTemplateRepository(db *gorm.DB) *GormTemplateRepository {
	return &GormTemplateRepository{db: db}
}

// List 模板列表，可按分类过滤
func (r *GormTemplateRepository) List(category string) ([]models.EmailTemplate, error) {
	query := r.db.Model(&models.EmailTemplate{})
	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("category = ?", category)
	}
	items := make([]models.EmailTemplate, 0)
	if err := query.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID 根据 ID 获取模板
func (r *GormTemplateRepository) GetByID(id uint) (*models.EmailTemplate, error) {
	var tpl models.EmailTemplate
	if err := r.db.First(&tpl, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tpl, nil
}

// Create 创建模板
func (r *GormTemplateRepository) Create(tpl *models.EmailTemplate) error {
	return r.db.Create(tpl).Error
}

// Delete 删除模板
func (r *GormTemplateRepository) Delete(id uint) error {
	return r.db.Delete(&models.EmailTemplate{}, id).Error
}
