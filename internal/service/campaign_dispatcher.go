package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/constants"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/tracking"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// CampaignSendResult 活动发送汇总
type CampaignSendResult struct {
	Success     bool     `json:"success"`
	TotalSent   int      `json:"totalSent"`
	TotalFailed int      `json:"totalFailed"`
	Errors      []string `json:"errors"`
}

// CredentialStrategy 解析活动使用的发信参数；found=false 时交给下一个策略
type CredentialStrategy interface {
	Name() string
	Resolve(campaign *models.Campaign) (mailer.Settings, bool, error)
}

// AliasCredentialStrategy 别名绑定的启用凭据
type AliasCredentialStrategy struct {
	aliasRepo   repository.AliasRepository
	credentials *CredentialService
	repo        repository.CredentialRepository
}

// NewAliasCredentialStrategy 创建别名凭据策略
func NewAliasCredentialStrategy(aliasRepo repository.AliasRepository, repo repository.CredentialRepository, credentials *CredentialService) *AliasCredentialStrategy {
	return &AliasCredentialStrategy{aliasRepo: aliasRepo, repo: repo, credentials: credentials}
}

func (s *AliasCredentialStrategy) Name() string { return "alias" }

// Resolve 活动指定了别名时，别名必须存在
func (s *AliasCredentialStrategy) Resolve(campaign *models.Campaign) (mailer.Settings, bool, error) {
	if campaign.FromAliasID == nil {
		return mailer.Settings{}, false, nil
	}
	alias, err := s.aliasRepo.GetByID(*campaign.FromAliasID)
	if err != nil {
		return mailer.Settings{}, false, err
	}
	if alias == nil {
		return mailer.Settings{}, false, ErrAliasNotFound
	}
	credential, err := s.repo.FirstActiveByAlias(alias.ID)
	if err != nil {
		return mailer.Settings{}, false, err
	}
	if credential == nil {
		return mailer.Settings{}, false, nil
	}
	settings, err := s.credentials.Settings(credential, alias)
	if err != nil {
		return mailer.Settings{}, false, err
	}
	return settings, true, nil
}

// DefaultCredentialStrategy 标记为默认的启用凭据
type DefaultCredentialStrategy struct {
	aliasRepo   repository.AliasRepository
	repo        repository.CredentialRepository
	credentials *CredentialService
}

// NewDefaultCredentialStrategy 创建默认凭据策略
func NewDefaultCredentialStrategy(aliasRepo repository.AliasRepository, repo repository.CredentialRepository, credentials *CredentialService) *DefaultCredentialStrategy {
	return &DefaultCredentialStrategy{aliasRepo: aliasRepo, repo: repo, credentials: credentials}
}

func (s *DefaultCredentialStrategy) Name() string { return "default" }

func (s *DefaultCredentialStrategy) Resolve(campaign *models.Campaign) (mailer.Settings, bool, error) {
	credential, err := s.repo.GetDefaultActive()
	if err != nil {
		return mailer.Settings{}, false, err
	}
	if credential == nil {
		return mailer.Settings{}, false, nil
	}
	var alias *models.SenderAlias
	if campaign.FromAliasID != nil {
		if alias, err = s.aliasRepo.GetByID(*campaign.FromAliasID); err != nil {
			return mailer.Settings{}, false, err
		}
	}
	settings, err := s.credentials.Settings(credential, alias)
	if err != nil {
		return mailer.Settings{}, false, err
	}
	return settings, true, nil
}

// ConfiguredSMTPStrategy 回退到 config.yml 中的系统 SMTP
type ConfiguredSMTPStrategy struct {
	email *EmailService
}

// NewConfiguredSMTPStrategy 创建系统 SMTP 策略
func NewConfiguredSMTPStrategy(email *EmailService) *ConfiguredSMTPStrategy {
	return &ConfiguredSMTPStrategy{email: email}
}

func (s *ConfiguredSMTPStrategy) Name() string { return "configured_smtp" }

func (s *ConfiguredSMTPStrategy) Resolve(*models.Campaign) (mailer.Settings, bool, error) {
	settings, err := s.email.Settings()
	if err != nil {
		if errors.Is(err, ErrEmailServiceDisabled) {
			return mailer.Settings{}, false, ErrEmailServiceNotConfigured
		}
		return mailer.Settings{}, false, err
	}
	return settings, true, nil
}

// CampaignDispatcher 活动群发
type CampaignDispatcher struct {
	cfg        config.CampaignConfig
	repo       repository.CampaignRepository
	emailRepo  repository.CampaignEmailRepository
	strategies []CredentialStrategy
	factory    ProviderFactory
	injector   *tracking.Injector
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewCampaignDispatcher 创建活动群发器，strategies 按顺序尝试
func NewCampaignDispatcher(
	cfg config.CampaignConfig,
	repo repository.CampaignRepository,
	emailRepo repository.CampaignEmailRepository,
	strategies []CredentialStrategy,
	factory ProviderFactory,
	injector *tracking.Injector,
) *CampaignDispatcher {
	if factory == nil {
		factory = NewProviderFactory(nil)
	}
	return &CampaignDispatcher{
		cfg:        cfg,
		repo:       repo,
		emailRepo:  emailRepo,
		strategies: strategies,
		factory:    factory,
		injector:   injector,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Prepare 校验活动状态并建立发信连接，不修改任何数据
func (d *CampaignDispatcher) Prepare(ctx context.Context, id uint) (*models.Campaign, mailer.Provider, error) {
	campaign, err := d.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if campaign == nil {
		return nil, nil, ErrCampaignNotFound
	}
	if !isCampaignSendable(campaign.Status) {
		return nil, nil, fmt.Errorf("%w: %s", ErrCampaignStatusInvalid, campaign.Status)
	}

	settings, err := d.resolveSettings(campaign)
	if err != nil {
		return nil, nil, err
	}
	provider, err := d.factory(settings)
	if err != nil {
		return nil, nil, mapProviderBuildError(err)
	}
	if err := provider.TestConnection(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEmailConnectionFailed, err)
	}
	return campaign, provider, nil
}

// SendCampaign 发送活动，发送过程独立于调用方的取消信号
func (d *CampaignDispatcher) SendCampaign(ctx context.Context, id uint) (*CampaignSendResult, error) {
	campaign, provider, err := d.Prepare(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(context.WithoutCancel(ctx), campaign, provider)
}

// Dispatch 对已准备好的活动执行分批发送
func (d *CampaignDispatcher) Dispatch(ctx context.Context, campaign *models.Campaign, provider mailer.Provider) (result *CampaignSendResult, err error) {
	log := logger.SW("campaign_id", campaign.ID, "provider", provider.Kind())
	sentAt := d.now()
	claimed, err := d.repo.MarkSending(campaign.ID, sentAt)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: already dispatched", ErrCampaignStatusInvalid)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCampaignSendFailed, recovered)
		}
		if err != nil {
			log.Errorw("campaign_send_failed", "error", err)
			if updateErr := d.repo.UpdateFields(campaign.ID, map[string]interface{}{
				"status":        constants.CampaignStatusFailed,
				"error_message": err.Error(),
			}); updateErr != nil {
				log.Errorw("campaign_mark_failed_error", "error", updateErr)
			}
			result = &CampaignSendResult{Success: false, Errors: []string{err.Error()}}
		}
	}()

	recipients := normalizeRecipients(campaign.Recipients)
	collector := &sendErrors{}
	batchSize := d.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	for start := 0; start < len(recipients); start += batchSize {
		end := start + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		if err := d.sendBatch(ctx, campaign, provider, recipients[start:end], collector); err != nil {
			return nil, err
		}
		if end < len(recipients) {
			if err := d.sleep(ctx, d.cfg.BatchDelay()); err != nil {
				return nil, err
			}
		}
	}

	counts, err := d.emailRepo.CountByStatus(campaign.ID)
	if err != nil {
		return nil, err
	}
	totalSent := int(counts[constants.CampaignEmailStatusSent] + counts[constants.CampaignEmailStatusDelivered])
	totalFailed := len(recipients) - totalSent
	status := constants.CampaignStatusSent
	if totalFailed > 0 {
		status = constants.CampaignStatusPartiallySent
	}
	if err := d.repo.UpdateFields(campaign.ID, map[string]interface{}{
		"status":           status,
		"total_recipients": len(recipients),
		"total_sent":       totalSent,
		"total_failed":     totalFailed,
	}); err != nil {
		return nil, err
	}

	log.Infow("campaign_send_done", "status", status, "total_sent", totalSent, "total_failed", totalFailed)
	return &CampaignSendResult{
		Success:     totalFailed == 0,
		TotalSent:   totalSent,
		TotalFailed: totalFailed,
		Errors:      collector.list(),
	}, nil
}

// sendBatch 并发发送一批收件人；单个收件人失败只记录，panic 中止整个活动
func (d *CampaignDispatcher) sendBatch(ctx context.Context, campaign *models.Campaign, provider mailer.Provider, batch []string, collector *sendErrors) error {
	var group errgroup.Group
	for _, recipient := range batch {
		group.Go(func() (err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					err = fmt.Errorf("%w: panic while sending to %s: %v", ErrCampaignSendFailed, recipient, recovered)
				}
			}()
			if sendErr := d.sendOne(ctx, campaign, provider, recipient); sendErr != nil {
				collector.add(fmt.Sprintf("%s: %v", recipient, sendErr))
			}
			return nil
		})
	}
	return group.Wait()
}

func (d *CampaignDispatcher) sendOne(ctx context.Context, campaign *models.Campaign, provider mailer.Provider, recipient string) error {
	record := &models.CampaignEmail{
		CampaignID:     campaign.ID,
		RecipientEmail: recipient,
		TrackingID:     ulid.Make().String(),
		Status:         constants.CampaignEmailStatusPending,
	}
	if err := d.emailRepo.Create(record); err != nil {
		return fmt.Errorf("create email record: %w", err)
	}

	body := campaign.HTMLBody
	if d.injector != nil {
		body = d.injector.AddTracking(body, record.TrackingID)
	}
	result, sendErr := provider.Send(ctx, mailer.Message{
		To:      recipient,
		Subject: campaign.Subject,
		HTML:    body,
		Text:    tracking.HTMLToText(campaign.HTMLBody),
	})
	if sendErr != nil {
		if err := d.emailRepo.UpdateFields(record.ID, map[string]interface{}{
			"status":        constants.CampaignEmailStatusFailed,
			"error_message": sendErr.Error(),
		}); err != nil {
			logger.Errorw("campaign_email_mark_failed_error", "campaign_email_id", record.ID, "error", err)
		}
		return sendErr
	}

	if err := d.emailRepo.UpdateFields(record.ID, map[string]interface{}{
		"status":     constants.CampaignEmailStatusSent,
		"message_id": result.MessageID,
		"sent_at":    d.now(),
	}); err != nil {
		logger.Errorw("campaign_email_mark_sent_error", "campaign_email_id", record.ID, "error", err)
		return err
	}
	return nil
}

func (d *CampaignDispatcher) resolveSettings(campaign *models.Campaign) (mailer.Settings, error) {
	for _, strategy := range d.strategies {
		settings, found, err := strategy.Resolve(campaign)
		if err != nil {
			return mailer.Settings{}, err
		}
		if found {
			logger.Debugw("campaign_credential_resolved", "campaign_id", campaign.ID, "strategy", strategy.Name())
			return settings, nil
		}
	}
	return mailer.Settings{}, ErrEmailServiceNotConfigured
}

// normalizeRecipients 去空白、去重（大小写不敏感），保持原顺序
func normalizeRecipients(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		email := strings.TrimSpace(item)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out
}

type sendErrors struct {
	mu    sync.Mutex
	items []string
}

func (e *sendErrors) add(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, msg)
}

func (e *sendErrors) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.items))
	copy(out, e.items)
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
