package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// CampaignRepository 活动数据访问接口
type CampaignRepository interface {
	GetByID(id uint) (*models.Campaign, error)
	List(filter CampaignListFilter) ([]models.Campaign, error)
	ListDueScheduled(now time.Time, limit int) ([]models.Campaign, error)
	Create(campaign *models.Campaign) error
	Update(campaign *models.Campaign) error
	UpdateFields(id uint, fields map[string]interface{}) error
	MarkSending(id uint, sentAt time.Time) (bool, error)
	Delete(id uint) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CampaignRepository
}

// GormCampaignRepository GORM 实现
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository 创建活动仓库
func NewCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCampaignRepository) WithTx(tx *gorm.DB) CampaignRepository {
	if tx == nil {
		return r
	}
	return &GormCampaignRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCampaignRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取活动
func (r *GormCampaignRepository) GetByID(id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// List 查询活动列表
func (r *GormCampaignRepository) List(filter CampaignListFilter) ([]models.Campaign, error) {
	query := r.db.Model(&models.Campaign{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	campaigns := make([]models.Campaign, 0)
	if err := applyLimitOffset(query.Order("created_at DESC, id DESC"), filter.Limit, filter.Offset).Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// ListDueScheduled 到达预定时间的定时活动
func (r *GormCampaignRepository) ListDueScheduled(now time.Time, limit int) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = 20
	}
	campaigns := make([]models.Campaign, 0, limit)
	err := r.db.Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", constants.CampaignStatusScheduled, now).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&campaigns).Error
	return campaigns, err
}

// Create 创建活动
func (r *GormCampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// Update 更新活动
func (r *GormCampaignRepository) Update(campaign *models.Campaign) error {
	return r.db.Save(campaign).Error
}

// UpdateFields 按字段更新活动
func (r *GormCampaignRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Campaign{}).Where("id = ?", id).Updates(fields).Error
}

// MarkSending 仅草稿或定时状态可进入发送中，返回是否抢到
func (r *GormCampaignRepository) MarkSending(id uint, sentAt time.Time) (bool, error) {
	result := r.db.Model(&models.Campaign{}).
		Where("id = ? AND status IN ?", id, []string{constants.CampaignStatusDraft, constants.CampaignStatusScheduled}).
		Updates(map[string]interface{}{
			"status":        constants.CampaignStatusSending,
			"sent_at":       sentAt,
			"error_message": "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete 删除活动及其投递记录
func (r *GormCampaignRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("campaign_id = ?", id).Delete(&models.EmailTrackingEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.CampaignEmail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Campaign{}, id).Error
	})
}
