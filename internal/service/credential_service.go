package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/secret"
)

const defaultSenderName = "Campaign"

// CredentialInput 凭据创建/更新输入
// Secret 为空时更新操作保留原密文
type CredentialInput struct {
	AliasID        *uint
	CredentialName string
	ProviderType   string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPUseTLS     *bool
	APIEndpoint    string
	Secret         string
	IsActive       *bool
	IsDefault      *bool
}

// CredentialService 发信凭据服务
type CredentialService struct {
	repo      repository.CredentialRepository
	aliasRepo repository.AliasRepository
	cipher    *secret.Cipher
	factory   ProviderFactory
}

// NewCredentialService 创建凭据服务
func NewCredentialService(repo repository.CredentialRepository, aliasRepo repository.AliasRepository, cipher *secret.Cipher, factory ProviderFactory) *CredentialService {
	if factory == nil {
		factory = NewProviderFactory(nil)
	}
	return &CredentialService{repo: repo, aliasRepo: aliasRepo, cipher: cipher, factory: factory}
}

// List 凭据列表（不含密文）
func (s *CredentialService) List() ([]models.EmailCredential, error) {
	return s.repo.List()
}

// Get 获取凭据
func (s *CredentialService) Get(id uint) (*models.EmailCredential, error) {
	credential, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		return nil, ErrCredentialNotFound
	}
	return credential, nil
}

// Create 创建凭据，密钥加密存储
func (s *CredentialService) Create(input CredentialInput) (*models.EmailCredential, error) {
	credential := &models.EmailCredential{
		SMTPUseTLS: true,
		IsActive:   true,
	}
	if err := s.apply(credential, input, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(credential); err != nil {
		return nil, err
	}
	if input.IsActive != nil && !*input.IsActive {
		credential.IsActive = false
		if err := s.repo.Update(credential); err != nil {
			return nil, err
		}
	}
	return credential, nil
}

// Update 更新凭据
func (s *CredentialService) Update(id uint, input CredentialInput) (*models.EmailCredential, error) {
	credential, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(credential, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.Update(credential); err != nil {
		return nil, err
	}
	return credential, nil
}

// Delete 删除凭据
func (s *CredentialService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

// TestConnection 测试凭据连接
func (s *CredentialService) TestConnection(ctx context.Context, id uint) error {
	credential, err := s.Get(id)
	if err != nil {
		return err
	}
	settings, err := s.Settings(credential, nil)
	if err != nil {
		return err
	}
	provider, err := s.factory(settings)
	if err != nil {
		return mapProviderBuildError(err)
	}
	if err := provider.TestConnection(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailConnectionFailed, err)
	}
	return nil
}

// Settings 解密凭据并转换为 Provider 参数，alias 决定发件人名称
func (s *CredentialService) Settings(credential *models.EmailCredential, alias *models.SenderAlias) (mailer.Settings, error) {
	plain, err := s.cipher.Decrypt(credential.EncryptedSecret)
	if err != nil {
		return mailer.Settings{}, fmt.Errorf("%w: decrypt secret: %v", ErrCredentialInvalid, err)
	}
	kind := mailer.ParseKind(credential.ProviderType)
	settings := mailer.Settings{
		Kind:        kind,
		Host:        credential.SMTPHost,
		Port:        credential.SMTPPort,
		Username:    credential.SMTPUsername,
		UseTLS:      credential.SMTPUseTLS,
		APIEndpoint: credential.APIEndpoint,
		FromEmail:   credential.SMTPUsername,
		FromName:    defaultSenderName,
	}
	if kind == mailer.KindSMTP {
		settings.Password = plain
	} else {
		settings.APIKey = plain
	}
	if alias != nil {
		if strings.TrimSpace(alias.AliasName) != "" {
			settings.FromName = alias.AliasName
		}
		if strings.TrimSpace(settings.FromEmail) == "" {
			settings.FromEmail = alias.AliasEmail
		}
	}
	return settings, nil
}

func (s *CredentialService) apply(credential *models.EmailCredential, input CredentialInput, creating bool) error {
	if name := strings.TrimSpace(input.CredentialName); name != "" {
		credential.CredentialName = name
	}
	if providerType := strings.TrimSpace(input.ProviderType); providerType != "" {
		kind := mailer.ParseKind(providerType)
		switch kind {
		case mailer.KindSMTP, mailer.KindSendGrid, mailer.KindMailgun, mailer.KindResend, mailer.KindSES:
			credential.ProviderType = string(kind)
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerType)
		}
	}
	if credential.CredentialName == "" || credential.ProviderType == "" {
		return fmt.Errorf("%w: name and provider type are required", ErrCredentialInvalid)
	}

	if input.AliasID != nil {
		if *input.AliasID == 0 {
			credential.AliasID = nil
		} else {
			alias, err := s.aliasRepo.GetByID(*input.AliasID)
			if err != nil {
				return err
			}
			if alias == nil {
				return ErrAliasNotFound
			}
			aliasID := alias.ID
			credential.AliasID = &aliasID
		}
	}
	if host := strings.TrimSpace(input.SMTPHost); host != "" {
		credential.SMTPHost = host
	}
	if input.SMTPPort > 0 {
		credential.SMTPPort = input.SMTPPort
	}
	if username := strings.TrimSpace(input.SMTPUsername); username != "" {
		credential.SMTPUsername = username
	}
	if input.SMTPUseTLS != nil {
		credential.SMTPUseTLS = *input.SMTPUseTLS
	}
	if endpoint := strings.TrimSpace(input.APIEndpoint); endpoint != "" {
		credential.APIEndpoint = endpoint
	}
	if input.IsActive != nil && !creating {
		credential.IsActive = *input.IsActive
	}
	if input.IsDefault != nil {
		credential.IsDefault = *input.IsDefault
	}

	if credential.ProviderType == string(mailer.KindSMTP) && (credential.SMTPHost == "" || credential.SMTPPort == 0 || credential.SMTPUsername == "") {
		return fmt.Errorf("%w: smtp host, port and username are required", ErrCredentialInvalid)
	}

	if input.Secret != "" {
		encrypted, err := s.cipher.Encrypt(input.Secret)
		if err != nil {
			return err
		}
		credential.EncryptedSecret = encrypted
	} else if creating {
		return fmt.Errorf("%w: password or api key is required", ErrCredentialInvalid)
	}
	return nil
}

func mapProviderBuildError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mailer.ErrUnsupportedProvider) {
		return fmt.Errorf("%w: %v", ErrUnsupportedProvider, err)
	}
	return fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
}
