package repository

import (
	"errors"
	"time"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 后台账号存取
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List() ([]models.Admin, error)
	Create(admin *models.Admin) error
	Update(admin *models.Admin) error
	TouchLastLogin(id uint, at time.Time) error
}

// GormAdminRepository 基于 gorm 的账号仓库
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建账号仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// 列表只返回展示字段，不带密码哈希
var adminListColumns = []string{"id", "username", "is_super", "last_login_at", "created_at"}

func (r *GormAdminRepository) firstAdmin(query *gorm.DB) (*models.Admin, error) {
	admin := new(models.Admin)
	err := query.First(admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return admin, nil
}

// GetByUsername 未找到时返回 nil, nil
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	return r.firstAdmin(r.db.Where("username = ?", username))
}

// GetByID 未找到时返回 nil, nil
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return r.firstAdmin(r.db.Where("id = ?", id))
}

func (r *GormAdminRepository) List() ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.Model(&models.Admin{}).Select(adminListColumns).Order("id ASC").Find(&admins).Error
	if err != nil {
		return nil, err
	}
	if admins == nil {
		admins = []models.Admin{}
	}
	return admins, nil
}

func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// Update 整行保存，用于改密
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// TouchLastLogin 只更新 last_login_at，不触碰 updated_at 之外的字段
func (r *GormAdminRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}
