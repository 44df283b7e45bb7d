package service

import (
	"context"
	"strings"
	"time"

	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
)

// TrackingService 邮件打开/点击追踪
type TrackingService struct {
	campaignRepo repository.CampaignRepository
	emailRepo    repository.CampaignEmailRepository
	now          func() time.Time
}

// NewTrackingService 创建追踪服务
func NewTrackingService(campaignRepo repository.CampaignRepository, emailRepo repository.CampaignEmailRepository) *TrackingService {
	return &TrackingService{campaignRepo: campaignRepo, emailRepo: emailRepo, now: time.Now}
}

// RecordOpen 记录打开：首次写入打开时间，次数递增，并刷新活动打开总数
func (s *TrackingService) RecordOpen(_ context.Context, trackingID string, meta RequestMeta) error {
	email, err := s.lookup(trackingID)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.emailRepo.RecordOpen(email.ID, now); err != nil {
		return err
	}
	s.appendEvent(email, constants.TrackingEventOpen, "", meta, now)

	opened, err := s.emailRepo.CountOpened(email.CampaignID)
	if err != nil {
		return err
	}
	return s.campaignRepo.UpdateFields(email.CampaignID, map[string]interface{}{"total_opened": opened})
}

// RecordClick 记录点击，规则与打开一致
func (s *TrackingService) RecordClick(_ context.Context, trackingID, targetURL string, meta RequestMeta) error {
	email, err := s.lookup(trackingID)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.emailRepo.RecordClick(email.ID, now); err != nil {
		return err
	}
	s.appendEvent(email, constants.TrackingEventClick, targetURL, meta, now)

	clicked, err := s.emailRepo.CountClicked(email.CampaignID)
	if err != nil {
		return err
	}
	return s.campaignRepo.UpdateFields(email.CampaignID, map[string]interface{}{"total_clicked": clicked})
}

func (s *TrackingService) lookup(trackingID string) (*models.CampaignEmail, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, ErrTrackingNotFound
	}
	email, err := s.emailRepo.GetByTrackingID(trackingID)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, ErrTrackingNotFound
	}
	return email, nil
}

func (s *TrackingService) appendEvent(email *models.CampaignEmail, eventType, targetURL string, meta RequestMeta, at time.Time) {
	event := &models.EmailTrackingEvent{
		CampaignEmailID: email.ID,
		CampaignID:      email.CampaignID,
		EventType:       eventType,
		URL:             targetURL,
		IPAddress:       meta.ClientIP,
		UserAgent:       truncateRunes(meta.UserAgent, 512),
		CreatedAt:       at,
	}
	if err := s.emailRepo.CreateEvent(event); err != nil {
		logger.Warnw("tracking_event_record_failed", "campaign_email_id", email.ID, "event_type", eventType, "error", err)
	}
}
