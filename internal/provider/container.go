package provider

import (
	"time"

	"github.com/gatemail/internal/authz"
	"github.com/gatemail/internal/cache"
	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/queue"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/secret"
	"github.com/gatemail/internal/service"
	"github.com/gatemail/internal/tracking"

	"github.com/prometheus/client_golang/prometheus"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Store       cache.Store

	// Repositories
	AdminRepo         repository.AdminRepository
	ContentRepo       repository.ContentRepository
	ViewRepo          repository.ViewRepository
	UserSessionRepo   repository.UserSessionRepository
	CampaignRepo      repository.CampaignRepository
	CampaignEmailRepo repository.CampaignEmailRepository
	CredentialRepo    repository.CredentialRepository
	AliasRepo         repository.AliasRepository
	TemplateRepo      repository.TemplateRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	CaptchaService      *service.CaptchaService
	RateLimiter         *service.RateLimiter
	VerificationStore   *service.VerificationStore
	VerificationService *service.VerificationService
	ContentService      *service.ContentService
	TrackingService     *service.TrackingService
	CredentialService   *service.CredentialService
	CampaignDispatcher  *service.CampaignDispatcher
	CampaignService     *service.CampaignService
	AliasService        *service.AliasService
	TemplateService     *service.TemplateService
	AnalyticsService    *service.AnalyticsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// Redis 未启用时退化为进程内存储，仅适用于单实例部署
	store := cache.NewStore(&cfg.Redis)

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Store:       store,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.ContentRepo = repository.NewContentRepository(db)
	c.ViewRepo = repository.NewViewRepository(db)
	c.UserSessionRepo = repository.NewUserSessionRepository(db)
	c.CampaignRepo = repository.NewCampaignRepository(db)
	c.CampaignEmailRepo = repository.NewCampaignEmailRepository(db)
	c.CredentialRepo = repository.NewCredentialRepository(db)
	c.AliasRepo = repository.NewAliasRepository(db)
	c.TemplateRepo = repository.NewTemplateRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	cipher, err := secret.NewCipher(cfg.Crypto.SecretKey)
	if err != nil {
		logger.Errorw("provider_init_cipher_failed", "error", err)
		panic(err)
	}

	var mailerMetrics *mailer.Metrics
	if cfg.Metrics.Enabled {
		mailerMetrics = mailer.NewMetrics(prometheus.DefaultRegisterer)
	}
	factory := service.NewProviderFactory(mailerMetrics)

	c.AuthService = service.NewAuthService(cfg, c.AdminRepo, c.Store)
	c.EmailService = service.NewEmailService(&cfg.Email, factory)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)

	// 验证流程
	c.RateLimiter = service.NewRateLimiter(c.Store)
	c.VerificationStore = service.NewVerificationStore(
		c.Store,
		time.Duration(cfg.Verification.CodeTTLSeconds)*time.Second,
		time.Duration(cfg.Verification.TokenTTLSeconds)*time.Second,
	)
	c.VerificationService = service.NewVerificationService(
		cfg.Verification,
		c.RateLimiter,
		c.VerificationStore,
		c.UserSessionRepo,
		c.EmailService,
		c.CaptchaService,
	)
	c.ContentService = service.NewContentService(c.ContentRepo, c.ViewRepo, c.UserSessionRepo, c.VerificationService)

	// 邮件活动
	c.CredentialService = service.NewCredentialService(c.CredentialRepo, c.AliasRepo, cipher, factory)
	strategies := []service.CredentialStrategy{
		service.NewAliasCredentialStrategy(c.AliasRepo, c.CredentialRepo, c.CredentialService),
		service.NewDefaultCredentialStrategy(c.AliasRepo, c.CredentialRepo, c.CredentialService),
		service.NewConfiguredSMTPStrategy(c.EmailService),
	}
	c.CampaignDispatcher = service.NewCampaignDispatcher(
		cfg.Campaign,
		c.CampaignRepo,
		c.CampaignEmailRepo,
		strategies,
		factory,
		tracking.NewInjector(cfg.Tracking.AppURL),
	)
	c.CampaignService = service.NewCampaignService(c.CampaignRepo, c.CampaignEmailRepo, c.AliasRepo, c.CampaignDispatcher, c.QueueClient)
	c.TrackingService = service.NewTrackingService(c.CampaignRepo, c.CampaignEmailRepo)
	c.AliasService = service.NewAliasService(
		c.AliasRepo,
		c.EmailService,
		cfg.Tracking.AppURL,
		time.Duration(cfg.Verification.AliasTokenExpireHours)*time.Hour,
	)
	c.TemplateService = service.NewTemplateService(c.TemplateRepo)
	c.AnalyticsService = service.NewAnalyticsService(c.UserSessionRepo, c.ViewRepo, c.ContentRepo, c.Store)
}

// Close 释放队列与存储连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warnw("provider_close_store_failed", "error", err)
		}
	}
}
