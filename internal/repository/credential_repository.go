package repository

import (
	"errors"

	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// CredentialRepository 发信凭据数据访问接口
type CredentialRepository interface {
	List() ([]models.EmailCredential, error)
	GetByID(id uint) (*models.EmailCredential, error)
	FirstActiveByAlias(aliasID uint) (*models.EmailCredential, error)
	GetDefaultActive() (*models.EmailCredential, error)
	Create(credential *models.EmailCredential) error
	Update(credential *models.EmailCredential) error
	Delete(id uint) error
}

// GormCredentialRepository GORM 实现
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository 创建凭据仓库
func NewCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// List 凭据列表
func (r *GormCredentialRepository) List() ([]models.EmailCredential, error) {
	items := make([]models.EmailCredential, 0)
	if err := r.db.Order("is_default DESC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID 根据 ID 获取凭据
func (r *GormCredentialRepository) GetByID(id uint) (*models.EmailCredential, error) {
	return r.first(r.db.Where("id = ?", id))
}

// FirstActiveByAlias 别名下第一条启用的凭据
func (r *GormCredentialRepository) FirstActiveByAlias(aliasID uint) (*models.EmailCredential, error) {
	return r.first(r.db.Where("alias_id = ? AND is_active = ?", aliasID, true).Order("id ASC"))
}

// GetDefaultActive 启用中的默认凭据
func (r *GormCredentialRepository) GetDefaultActive() (*models.EmailCredential, error) {
	return r.first(r.db.Where("is_default = ? AND is_active = ?", true, true).Order("id ASC"))
}

// Create 创建凭据；设为默认时取消其它默认
func (r *GormCredentialRepository) Create(credential *models.EmailCredential) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if credential.IsDefault {
			if err := clearDefaultCredential(tx, 0); err != nil {
				return err
			}
		}
		return tx.Create(credential).Error
	})
}

// Update 更新凭据；设为默认时取消其它默认
func (r *GormCredentialRepository) Update(credential *models.EmailCredential) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if credential.IsDefault {
			if err := clearDefaultCredential(tx, credential.ID); err != nil {
				return err
			}
		}
		return tx.Save(credential).Error
	})
}

// Delete 删除凭据
func (r *GormCredentialRepository) Delete(id uint) error {
	return r.db.Delete(&models.EmailCredential{}, id).Error
}

func (r *GormCredentialRepository) first(query *gorm.DB) (*models.EmailCredential, error) {
	var credential models.EmailCredential
	if err := query.First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credential, nil
}

func clearDefaultCredential(tx *gorm.DB, exceptID uint) error {
	query := tx.Model(&models.EmailCredential{}).Where("is_default = ?", true)
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Update("is_default", false).Error
}
