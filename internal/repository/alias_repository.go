package repository

import (
	"errors"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// AliasRepository 发件人别名数据访问接口
type AliasRepository interface {
	List() ([]models.SenderAlias, error)
	GetByID(id uint) (*models.SenderAlias, error)
	GetByAliasEmail(email string) (*models.SenderAlias, error)
	GetByVerificationToken(token string) (*models.SenderAlias, error)
	Create(alias *models.SenderAlias) error
	Update(alias *models.SenderAlias) error
	Delete(id uint) error
}

// GormAliasRepository GORM 实现
type GormAliasRepository struct {
	db *gorm.DB
}

// NewAliasRepository 创建别名仓库
func NewAliasRepository(db *gorm.DB) *GormAliasRepository {
	return &GormAliasRepository{db: db}
}

// List 别名列表
func (r *GormAliasRepository) List() ([]models.SenderAlias, error) {
	items := make([]models.SenderAlias, 0)
	if err := r.db.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID 根据 ID 获取别名
func (r *GormAliasRepository) GetByID(id uint) (*models.SenderAlias, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByAliasEmail 根据别名邮箱获取
func (r *GormAliasRepository) GetByAliasEmail(email string) (*models.SenderAlias, error) {
	return r.first(r.db.Where("alias_email = ?", email))
}

// GetByVerificationToken 根据验证令牌获取
func (r *GormAliasRepository) GetByVerificationToken(token string) (*models.SenderAlias, error) {
	if token == "" {
		return nil, nil
	}
	return r.first(r.db.Where("verification_token = ?", token))
}

// Create 创建别名
func (r *GormAliasRepository) Create(alias *models.SenderAlias) error {
	return r.db.Create(alias).Error
}

// Update 更新别名
func (r *GormAliasRepository) Update(alias *models.SenderAlias) error {
	return r.db.Save(alias).Error
}

// Delete 删除别名，并解除凭据关联
func (r *GormAliasRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.EmailCredential{}).Where("alias_id = ?", id).Update("alias_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SenderAlias{}, id).Error
	})
}

func (r *GormAliasRepository) first(query *gorm.DB) (*models.SenderAlias, error) {
	var alias models.SenderAlias
	if err := query.First(&alias).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alias, nil
}
