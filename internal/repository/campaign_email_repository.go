package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/models"

	"gorm.io/gorm"
)

// CampaignEmailRepository 活动投递记录数据访问接口
type CampaignEmailRepository interface {
	Create(email *models.CampaignEmail) error
	UpdateFields(id uint, fields map[string]interface{}) error
	GetByTrackingID(trackingID string) (*models.CampaignEmail, error)
	List(filter CampaignEmailListFilter) ([]models.CampaignEmail, int64, error)
	CountByStatus(campaignID uint) (map[string]int64, error)
	CountOpened(campaignID uint) (int64, error)
	CountClicked(campaignID uint) (int64, error)
	RecordOpen(id uint, at time.Time) error
	RecordClick(id uint, at time.Time) error
	CreateEvent(event *models.EmailTrackingEvent) error
	DailyEvents(campaignID uint, since time.Time) ([]DailyEventRow, error)
}

// GormCampaignEmailRepository GORM 实现
type GormCampaignEmailRepository struct {
	db *gorm.DB
}

// NewCampaignEmailRepository 创建投递记录仓库
func NewCampaignEmailRepository(db *gorm.DB) *GormCampaignEmailRepository {
	return &GormCampaignEmailRepository{db: db}
}

// Create 创建投递记录
func (r *GormCampaignEmailRepository) Create(email *models.CampaignEmail) error {
	return r.db.Create(email).Error
}

// UpdateFields 按字段更新
func (r *GormCampaignEmailRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.CampaignEmail{}).Where("id = ?", id).Updates(fields).Error
}

// GetByTrackingID 根据追踪 ID 获取
func (r *GormCampaignEmailRepository) GetByTrackingID(trackingID string) (*models.CampaignEmail, error) {
	var email models.CampaignEmail
	if err := r.db.Where("tracking_id = ?", trackingID).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

// List 查询活动投递记录
func (r *GormCampaignEmailRepository) List(filter CampaignEmailListFilter) ([]models.CampaignEmail, int64, error) {
	query := r.db.Model(&models.CampaignEmail{}).Where("campaign_id = ?", filter.CampaignID)
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	emails := make([]models.CampaignEmail, 0)
	if err := applyLimitOffset(query.Order("id ASC"), filter.Limit, filter.Offset).Find(&emails).Error; err != nil {
		return nil, 0, err
	}
	return emails, total, nil
}

// CountByStatus 按状态统计投递记录
func (r *GormCampaignEmailRepository) CountByStatus(campaignID uint) (map[string]int64, error) {
	type statusRow struct {
		Status string
		Total  int64
	}
	rows := make([]statusRow, 0)
	if err := r.db.Model(&models.CampaignEmail{}).
		Select("status, COUNT(*) as total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}

// CountOpened 已打开的投递数
func (r *GormCampaignEmailRepository) CountOpened(campaignID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CampaignEmail{}).Where("campaign_id = ? AND opened_at IS NOT NULL", campaignID).Count(&count).Error
	return count, err
}

// CountClicked 已点击的投递数
func (r *GormCampaignEmailRepository) CountClicked(campaignID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CampaignEmail{}).Where("campaign_id = ? AND clicked_at IS NOT NULL", campaignID).Count(&count).Error
	return count, err
}

// RecordOpen 首次打开写入时间，打开次数原子递增
func (r *GormCampaignEmailRepository) RecordOpen(id uint, at time.Time) error {
	return r.recordEvent(id, "opened_at", "open_count", at)
}

// RecordClick 首次点击写入时间，点击次数原子递增
func (r *GormCampaignEmailRepository) RecordClick(id uint, at time.Time) error {
	return r.recordEvent(id, "clicked_at", "click_count", at)
}

func (r *GormCampaignEmailRepository) recordEvent(id uint, timeColumn, countColumn string, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CampaignEmail{}).
			Where("id = ?", id).
			UpdateColumn(countColumn, gorm.Expr(fmt.Sprintf("%s + ?", countColumn), 1)).Error; err != nil {
			return err
		}
		return tx.Model(&models.CampaignEmail{}).
			Where(fmt.Sprintf("id = ? AND %s IS NULL", timeColumn), id).
			UpdateColumn(timeColumn, at).Error
	})
}

// CreateEvent 写入追踪事件
func (r *GormCampaignEmailRepository) CreateEvent(event *models.EmailTrackingEvent) error {
	return r.db.Create(event).Error
}

// DailyEvents 按天统计追踪事件
func (r *GormCampaignEmailRepository) DailyEvents(campaignID uint, since time.Time) ([]DailyEventRow, error) {
	dayExpr := dialectOf(r.db).day("created_at")
	rows := make([]DailyEventRow, 0)
	query := r.db.Model(&models.EmailTrackingEvent{}).
		Select(fmt.Sprintf("%s as day, event_type, COUNT(*) as total", dayExpr)).
		Where("created_at >= ?", since).
		Where("event_type IN ?", []string{constants.TrackingEventOpen, constants.TrackingEventClick})
	if campaignID > 0 {
		query = query.Where("campaign_id = ?", campaignID)
	}
	err := query.Group(dayExpr + ", event_type").Order("day asc").Scan(&rows).Error
	return rows, err
}
