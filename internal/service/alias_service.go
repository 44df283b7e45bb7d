package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
)

const (
	aliasTokenBytes       = 32
	defaultAliasTokenLife = 24 * time.Hour
)

// AliasInput 创建别名输入
type AliasInput struct {
	RealEmail  string
	AliasEmail string
	AliasName  string
}

// AliasMailer 别名验证邮件能力
type AliasMailer interface {
	SendAliasVerification(ctx context.Context, toEmail, aliasEmail, verifyURL string, expiresIn time.Duration) error
}

// AliasService 发件人别名服务
type AliasService struct {
	repo      repository.AliasRepository
	mailer    AliasMailer
	appURL    string
	tokenLife time.Duration
	now       func() time.Time
}

// NewAliasService 创建别名服务，appURL 用于拼接验证链接
func NewAliasService(repo repository.AliasRepository, mailer AliasMailer, appURL string, tokenLife time.Duration) *AliasService {
	if tokenLife <= 0 {
		tokenLife = defaultAliasTokenLife
	}
	return &AliasService{
		repo:      repo,
		mailer:    mailer,
		appURL:    strings.TrimRight(strings.TrimSpace(appURL), "/"),
		tokenLife: tokenLife,
		now:       time.Now,
	}
}

// List 别名列表
func (s *AliasService) List() ([]models.SenderAlias, error) {
	return s.repo.List()
}

// Create 创建别名，初始为未验证
func (s *AliasService) Create(input AliasInput) (*models.SenderAlias, error) {
	realEmail := strings.TrimSpace(input.RealEmail)
	aliasEmail := strings.ToLower(strings.TrimSpace(input.AliasEmail))
	if realEmail == "" || aliasEmail == "" {
		return nil, fmt.Errorf("%w: real email and alias email are required", ErrAliasInvalid)
	}
	if !IsValidEmail(realEmail) || !IsValidEmail(aliasEmail) {
		return nil, ErrInvalidEmail
	}
	existing, err := s.repo.GetByAliasEmail(aliasEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: alias email already exists", ErrAliasInvalid)
	}
	alias := &models.SenderAlias{
		RealEmail:  realEmail,
		AliasEmail: aliasEmail,
		AliasName:  strings.TrimSpace(input.AliasName),
		IsActive:   true,
	}
	if err := s.repo.Create(alias); err != nil {
		return nil, err
	}
	return alias, nil
}

// Delete 删除别名
func (s *AliasService) Delete(id uint) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

// SendVerification 生成 24 小时有效的令牌并发送到别名邮箱
func (s *AliasService) SendVerification(ctx context.Context, id uint) error {
	alias, err := s.get(id)
	if err != nil {
		return err
	}
	token, err := randomHex(aliasTokenBytes)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.tokenLife)
	alias.VerificationToken = token
	alias.VerificationExpiresAt = &expiresAt
	if err := s.repo.Update(alias); err != nil {
		return err
	}

	verifyURL := fmt.Sprintf("%s/verify-alias?token=%s&alias=%d", s.appURL, url.QueryEscape(token), alias.ID)
	if err := s.mailer.SendAliasVerification(ctx, alias.AliasEmail, alias.AliasEmail, verifyURL, s.tokenLife); err != nil {
		logger.Warnw("alias_verification_send_failed", "alias_id", alias.ID, "error", err)
		return err
	}
	logger.Infow("alias_verification_sent", "alias_id", alias.ID)
	return nil
}

// Verify 校验别名令牌，成功后清空令牌
func (s *AliasService) Verify(id uint, token string) (*models.SenderAlias, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAliasTokenInvalid
	}
	alias, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if alias.VerificationToken == "" || alias.VerificationToken != token {
		return nil, ErrAliasTokenInvalid
	}
	if alias.VerificationExpiresAt == nil || !s.now().Before(*alias.VerificationExpiresAt) {
		return nil, fmt.Errorf("%w: token expired", ErrAliasTokenInvalid)
	}
	alias.IsVerified = true
	alias.VerificationToken = ""
	alias.VerificationExpiresAt = nil
	if err := s.repo.Update(alias); err != nil {
		return nil, err
	}
	return alias, nil
}

func (s *AliasService) get(id uint) (*models.SenderAlias, error) {
	alias, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if alias == nil {
		return nil, ErrAliasNotFound
	}
	return alias, nil
}
